package serp

import (
	"math/rand"
	"sync"
)

// identity pairs a timezone with the accept-language a real browser in that
// zone would send, so the two never disagree within one fingerprint.
type identity struct {
	timezone string
	language string
}

var identities = []identity{
	{"America/New_York", "en-US,en;q=0.9"},
	{"America/Chicago", "en-US,en;q=0.9"},
	{"America/Los_Angeles", "en-US,en;q=0.8"},
	{"Europe/London", "en-GB,en;q=0.9"},
	{"America/Toronto", "en-CA,en;q=0.9"},
}

type profile struct {
	userAgent string
	width     int64
	height    int64
}

var desktopProfiles = []profile{
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36", 1920, 1080},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15", 1440, 900},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0", 1536, 864},
	{"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36", 1920, 1080},
}

var mobileProfiles = []profile{
	{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/122.0.6261.89 Mobile/15E148 Safari/604.1", 390, 844},
	{"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Mobile Safari/537.36", 412, 915},
	{"Mozilla/5.0 (Linux; Android 13; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Mobile Safari/537.36", 384, 854},
}

// RandomFingerprintProvider draws internally consistent identities from a
// fixed pool using an injected random source.
type RandomFingerprintProvider struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomFingerprintProvider builds a provider around rnd.
func NewRandomFingerprintProvider(rnd *rand.Rand) *RandomFingerprintProvider {
	return &RandomFingerprintProvider{rnd: rnd}
}

// Generate returns a fingerprint matching the requested device class. The
// user-agent and viewport come from the same profile so they never disagree.
func (p *RandomFingerprintProvider) Generate(device Device) Fingerprint {
	p.mu.Lock()
	defer p.mu.Unlock()

	pool := desktopProfiles
	if device == DeviceMobile {
		pool = mobileProfiles
	}
	prof := pool[p.rnd.Intn(len(pool))]
	id := identities[p.rnd.Intn(len(identities))]

	return Fingerprint{
		UserAgent:      prof.userAgent,
		ViewportWidth:  prof.width,
		ViewportHeight: prof.height,
		Timezone:       id.timezone,
		AcceptLanguage: id.language,
	}
}
