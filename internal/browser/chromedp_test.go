package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rankscout/serptrack/internal/serp"
)

func testFingerprint() serp.Fingerprint {
	return serp.Fingerprint{
		UserAgent:      "TestAgent/1.0",
		ViewportWidth:  1280,
		ViewportHeight: 800,
		Timezone:       "America/New_York",
		AcceptLanguage: "en-US,en;q=0.9",
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	require.Equal(t, 30*time.Second, cfg.NavigationTimeout)
	require.Equal(t, 250*time.Millisecond, cfg.SelectorPoll)

	cfg = Config{NavigationTimeout: time.Second, SelectorPoll: time.Millisecond}.withDefaults()
	require.Equal(t, time.Second, cfg.NavigationTimeout)
	require.Equal(t, time.Millisecond, cfg.SelectorPoll)
}

func TestChromeRejectsOperationsWithoutPage(t *testing.T) {
	c := &Chrome{cfg: Config{}.withDefaults()}

	require.Error(t, c.Navigate(context.Background(), "https://example.org"))
	_, err := c.WaitForAny(context.Background(), []string{".x"}, time.Millisecond)
	require.Error(t, err)
	_, err = c.HTML(context.Background())
	require.Error(t, err)
	require.Error(t, c.SwapProxy(context.Background(), nil, testFingerprint()))
}

func TestCloseIsIdempotent(t *testing.T) {
	c := &Chrome{}
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestForwardCancel(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())
	child, childCancel := context.WithCancel(context.Background())
	defer childCancel()

	stop := forwardCancel(parent, childCancel)
	defer stop()

	parentCancel()
	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child context not canceled after parent")
	}
}

func TestFactoryNavigateAndSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<!doctype html><html><body><div class="serp">hello</div></body></html>`)
	}))
	defer srv.Close()

	f := NewFactory(Config{Headless: true, NavigationTimeout: 10 * time.Second}, zap.NewNop())
	br, err := f.Open(context.Background(), testFingerprint(), nil)
	if err != nil {
		t.Skipf("chrome unavailable: %v", err)
	}
	defer func() { _ = br.Close() }()

	require.NoError(t, br.Navigate(context.Background(), srv.URL))

	found, err := br.WaitForAny(context.Background(), []string{".missing", ".serp"}, 3*time.Second)
	require.NoError(t, err)
	require.True(t, found)

	html, err := br.HTML(context.Background())
	require.NoError(t, err)
	require.True(t, strings.Contains(html, "hello"))

	found, err = br.WaitForAny(context.Background(), []string{".nope"}, 500*time.Millisecond)
	require.NoError(t, err, "selector timeout is a soft outcome, not an error")
	require.False(t, found)
}
