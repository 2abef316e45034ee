package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rankscout/serptrack/internal/serp"
)

// serpPage renders a minimal Google-shaped results page with the given
// domains in order.
func serpPage(domains ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="search">`)
	for i, d := range domains {
		fmt.Fprintf(&b, `<div class="g"><div class="yuRUbf"><a href="https://%s/p%d"><h3>Result %d</h3></a></div><div class="VwiC3b">Snippet %d</div></div>`, d, i, i+1, i+1)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func tenDomains(withTarget string, at int) []string {
	out := make([]string, 10)
	for i := range out {
		out[i] = fmt.Sprintf("site%d.example", i+1)
	}
	if withTarget != "" {
		out[at-1] = withTarget
	}
	return out
}

type fakeBrowser struct {
	mu          sync.Mutex
	events      *[]string
	html        string
	navErrs     map[int]error // 1-based navigation ordinal -> error
	waitFound   bool
	navigations []string
	swaps       []serp.ProxyHandle
	closes      int
}

func (b *fakeBrowser) Navigate(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.navigations = append(b.navigations, url)
	*b.events = append(*b.events, "navigate")
	if err, ok := b.navErrs[len(b.navigations)]; ok {
		return err
	}
	return nil
}

func (b *fakeBrowser) WaitForAny(context.Context, []string, time.Duration) (bool, error) {
	return b.waitFound, nil
}

func (b *fakeBrowser) HTML(context.Context) (string, error) {
	return b.html, nil
}

func (b *fakeBrowser) SwapProxy(_ context.Context, p *serp.ProxyHandle, _ serp.Fingerprint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.swaps = append(b.swaps, *p)
	*b.events = append(*b.events, "swap:"+p.Server)
	return nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	return nil
}

type fakeFactory struct {
	br      *fakeBrowser
	err     error
	openFPs []serp.Fingerprint
}

func (f *fakeFactory) Open(_ context.Context, fp serp.Fingerprint, _ *serp.ProxyHandle) (serp.Browser, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.openFPs = append(f.openFPs, fp)
	return f.br, nil
}

type fakeProxies struct {
	mu        sync.Mutex
	events    *[]string
	queue     []*serp.ProxyHandle
	successes []string
	failures  []string
}

func (p *fakeProxies) NextProxy() *serp.ProxyHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil
	}
	next := p.queue[0]
	p.queue = p.queue[1:]
	return next
}

func (p *fakeProxies) Throttle(context.Context) error { return nil }

func (p *fakeProxies) MarkSuccess(server string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.successes = append(p.successes, server)
}

func (p *fakeProxies) MarkFailed(server string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, server)
	*p.events = append(*p.events, "markFailed:"+server)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeIDs struct{}

func (fakeIDs) NewID() (string, error) { return "sess-0001", nil }

type harness struct {
	tracker *Tracker
	browser *fakeBrowser
	factory *fakeFactory
	proxies *fakeProxies
	sleeps  *[]time.Duration
	events  *[]string
}

func newHarness(t *testing.T, html string) *harness {
	t.Helper()
	events := &[]string{}
	br := &fakeBrowser{events: events, html: html, waitFound: true, navErrs: map[int]error{}}
	factory := &fakeFactory{br: br}
	proxies := &fakeProxies{events: events}
	tracker := New(
		factory,
		proxies,
		serp.NewRandomFingerprintProvider(rand.New(rand.NewSource(1))),
		&fakeClock{now: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)},
		fakeIDs{},
		rand.New(rand.NewSource(42)),
		Config{},
		zap.NewNop(),
	)
	sleeps := &[]time.Duration{}
	tracker.sleep = func(_ context.Context, d time.Duration) {
		*sleeps = append(*sleeps, d)
	}
	return &harness{tracker: tracker, browser: br, factory: factory, proxies: proxies, sleeps: sleeps, events: events}
}

func request(keywords ...string) serp.TrackingRequest {
	return serp.TrackingRequest{
		Keywords:     keywords,
		TargetDomain: "acme.com",
		Engine:       serp.EngineGoogle,
		Device:       serp.DeviceDesktop,
		MaxResults:   10,
	}
}

func TestRunTargetAtPositionThree(t *testing.T) {
	h := newHarness(t, serpPage(tenDomains("acme.com", 3)...))

	session, err := h.tracker.Run(context.Background(), request("plumber near me"))
	require.NoError(t, err)

	require.Equal(t, "sess-0001", session.ID)
	require.Equal(t, 1, session.Succeeded)
	require.Equal(t, 0, session.Failed)
	require.Empty(t, session.Errors)
	require.False(t, session.EndedAt.IsZero())

	require.Len(t, session.Results, 1)
	res := session.Results[0]
	require.Equal(t, 3, res.Rank)
	require.Contains(t, res.MatchedURL, "acme.com")
	require.Len(t, res.Competitors, 9)
	for _, c := range res.Competitors {
		require.NotEqual(t, "acme.com", c.Domain)
	}
	require.True(t, res.Competitors[0].LocalIntent, `"near" keyword flags local intent`)
	require.False(t, res.Partial)

	require.Equal(t, 1, h.browser.closes, "cleanup runs exactly once")
	require.Empty(t, *h.sleeps, "no inter-keyword delay after the last keyword")
}

func TestRunTargetAbsent(t *testing.T) {
	h := newHarness(t, serpPage(tenDomains("", 0)...))

	session, err := h.tracker.Run(context.Background(), request("plumber near me"))
	require.NoError(t, err)

	res := session.Results[0]
	require.Equal(t, 0, res.Rank)
	require.Empty(t, res.MatchedURL)
	require.Empty(t, res.MatchedTitle)
	require.Empty(t, res.MatchedDescription)
	require.Len(t, res.Competitors, 10)
}

func TestRunCountersAlwaysAddUp(t *testing.T) {
	h := newHarness(t, serpPage(tenDomains("acme.com", 1)...))
	h.browser.navErrs[2] = errors.New("net::ERR_TIMED_OUT")

	req := request("alpha", "beta", "gamma")
	session, err := h.tracker.Run(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, 2, session.Succeeded)
	require.Equal(t, 1, session.Failed)
	require.Equal(t, len(req.Keywords), session.Succeeded+session.Failed)
	require.Len(t, session.Errors, 1)
	require.Contains(t, session.Errors[0], `"beta"`)

	// Results preserve keyword order even across a failure.
	require.Equal(t, "alpha", session.Results[0].Keyword)
	require.Equal(t, "gamma", session.Results[1].Keyword)
}

func TestRunProxyFailover(t *testing.T) {
	h := newHarness(t, serpPage(tenDomains("acme.com", 1)...))
	h.browser.navErrs[1] = errors.New("net::ERR_PROXY_CONNECTION_FAILED")
	h.proxies.queue = []*serp.ProxyHandle{
		{Server: "proxy-a:8080"},
		{Server: "proxy-b:8080"},
	}

	req := request("alpha", "beta")
	req.UseProxy = true
	session, err := h.tracker.Run(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, []string{"proxy-a:8080"}, h.proxies.failures)
	require.Len(t, h.browser.swaps, 1)
	require.Equal(t, "proxy-b:8080", h.browser.swaps[0].Server)

	// The swap must land before the next keyword's navigation.
	events := *h.events
	swapIdx, navIdx := -1, -1
	for i, ev := range events {
		if ev == "swap:proxy-b:8080" && swapIdx == -1 {
			swapIdx = i
		}
		if ev == "navigate" && i > swapIdx && swapIdx != -1 && navIdx == -1 {
			navIdx = i
		}
	}
	require.Greater(t, navIdx, swapIdx)

	// Second keyword succeeded through the replacement proxy.
	require.Equal(t, []string{"proxy-b:8080"}, h.proxies.successes)
	require.Equal(t, 1, session.Succeeded)
	require.Equal(t, 1, session.Failed)

	// Error penalty sleep was applied.
	require.Contains(t, *h.sleeps, 5*time.Second)
}

func TestRunNoProxyAvailableIsFatal(t *testing.T) {
	h := newHarness(t, serpPage(tenDomains("acme.com", 1)...))

	req := request("alpha")
	req.UseProxy = true
	_, err := h.tracker.Run(context.Background(), req)

	var initErr *serp.InitializationError
	require.ErrorAs(t, err, &initErr)
	require.Zero(t, h.browser.closes, "no browser was launched")
}

func TestRunBrowserLaunchFailureIsFatal(t *testing.T) {
	h := newHarness(t, "")
	h.factory.err = errors.New("chrome executable not found")

	_, err := h.tracker.Run(context.Background(), request("alpha"))

	var initErr *serp.InitializationError
	require.ErrorAs(t, err, &initErr)
}

func TestRunInvalidRequestRejectedBeforeLaunch(t *testing.T) {
	h := newHarness(t, "")

	req := request("alpha")
	req.MaxResults = 3
	_, err := h.tracker.Run(context.Background(), req)

	require.Error(t, err)
	require.Empty(t, h.factory.openFPs, "validation failures never launch a browser")
}

func TestRunSelectorTimeoutYieldsPartialResult(t *testing.T) {
	h := newHarness(t, serpPage(tenDomains("acme.com", 2)...))
	h.browser.waitFound = false

	session, err := h.tracker.Run(context.Background(), request("alpha"))
	require.NoError(t, err)

	require.Equal(t, 1, session.Succeeded)
	require.True(t, session.Results[0].Partial, "selector timeout is a named outcome, not an error")
	require.Equal(t, 2, session.Results[0].Rank, "extraction still ran best-effort")
}

func TestRunZeroResultsIsKeywordFailure(t *testing.T) {
	h := newHarness(t, "<html><body><div id='search'></div></body></html>")

	session, err := h.tracker.Run(context.Background(), request("alpha"))
	require.NoError(t, err)
	require.Equal(t, 1, session.Failed)
	require.Contains(t, session.Errors[0], "no organic results")
}

func TestRunCancellationBetweenKeywords(t *testing.T) {
	h := newHarness(t, serpPage(tenDomains("acme.com", 1)...))
	ctx, cancel := context.WithCancel(context.Background())
	h.tracker.sleep = func(context.Context, time.Duration) { cancel() }

	session, err := h.tracker.Run(ctx, request("alpha", "beta", "gamma"))
	require.NoError(t, err)

	require.Equal(t, 1, session.Succeeded)
	require.Equal(t, 2, session.Failed, "unattempted keywords count as failed so the invariant holds")
	require.Equal(t, 3, session.Succeeded+session.Failed)
	require.Equal(t, 1, h.browser.closes)
}

func TestKeywordJitterRange(t *testing.T) {
	h := newHarness(t, "")

	for i := 0; i < 1000; i++ {
		d := h.tracker.keywordJitter()
		require.GreaterOrEqual(t, d, 3*time.Second)
		require.LessOrEqual(t, d, 8*time.Second)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	require.Equal(t, 3*time.Second, cfg.MinKeywordDelay)
	require.Equal(t, 8*time.Second, cfg.MaxKeywordDelay)
	require.Equal(t, 5*time.Second, cfg.ErrorPenalty)
	require.Equal(t, 10*time.Second, cfg.SelectorTimeout)
}

func TestKeywordJitterLargeMinimum(t *testing.T) {
	// A minimum above the default maximum must still yield a valid window.
	cfg := Config{MinKeywordDelay: 9 * time.Second}.withDefaults()
	require.Greater(t, cfg.MaxKeywordDelay, cfg.MinKeywordDelay)

	tracker := New(
		&fakeFactory{},
		&fakeProxies{events: &[]string{}},
		serp.NewRandomFingerprintProvider(rand.New(rand.NewSource(1))),
		&fakeClock{now: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)},
		fakeIDs{},
		rand.New(rand.NewSource(42)),
		cfg,
		zap.NewNop(),
	)
	for i := 0; i < 100; i++ {
		d := tracker.keywordJitter()
		require.GreaterOrEqual(t, d, 9*time.Second)
		require.LessOrEqual(t, d, cfg.MaxKeywordDelay)
	}
}
