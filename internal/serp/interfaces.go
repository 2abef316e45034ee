package serp

import (
	"context"
	"time"
)

// ProxyManager supplies and tracks upstream proxies for a session. Throttle
// blocks until the next request is permitted.
type ProxyManager interface {
	NextProxy() *ProxyHandle
	Throttle(ctx context.Context) error
	MarkSuccess(server string)
	MarkFailed(server string)
}

// Browser is the per-session browser handle. Exactly one page is live at a
// time; SwapProxy closes the current page before opening its replacement
// while keeping the browser process alive.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	WaitForAny(ctx context.Context, selectors []string, timeout time.Duration) (bool, error)
	HTML(ctx context.Context) (string, error)
	SwapProxy(ctx context.Context, proxy *ProxyHandle, fp Fingerprint) error
	Close() error
}

// BrowserFactory launches a browser configured with a fingerprint and an
// optional proxy. Launch failures are fatal to the session.
type BrowserFactory interface {
	Open(ctx context.Context, fp Fingerprint, proxy *ProxyHandle) (Browser, error)
}

// Adapter holds the engine-specific query construction and extraction rules.
type Adapter interface {
	Engine() Engine
	SearchURL(keyword string, req TrackingRequest) string
	ResultSelectors() []string
	Parse(html, keyword string, maxResults int) []ExtractedResult
	Features(html string) FeatureRecord
}

// FingerprintProvider produces a randomized, internally consistent browser
// identity for a device class.
type FingerprintProvider interface {
	Generate(device Device) Fingerprint
}

// PerformanceStore persists keyword measurements and serves the lookback
// window for trend comparison. Rows come back most-recent-first.
type PerformanceStore interface {
	CreatePerformanceTracking(ctx context.Context, rec PerformanceRecord) error
	GetPerformanceTrackingByKeyword(ctx context.Context, keyword, ownerID string, lookbackDays int) ([]PerformanceRecord, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces session IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
