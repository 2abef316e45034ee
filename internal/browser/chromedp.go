// Package browser owns the headless Chrome lifecycle for a tracking session:
// one process per session, one live page at a time, proxy swap via a fresh
// browser context rather than a relaunch.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/rankscout/serptrack/internal/serp"
)

// webdriver probing is the cheapest automation signal, cleared before any
// document script runs.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// Config controls browser behavior for all sessions built by a Factory.
type Config struct {
	Headless          bool
	NavigationTimeout time.Duration
	SelectorPoll      time.Duration
}

func (c Config) withDefaults() Config {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.SelectorPoll <= 0 {
		c.SelectorPoll = 250 * time.Millisecond
	}
	return c
}

// Factory launches Chrome processes configured per session.
type Factory struct {
	cfg    Config
	logger *zap.Logger
}

// NewFactory creates a Factory.
func NewFactory(cfg Config, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg.withDefaults(), logger: logger}
}

// Open launches one browser process with the fingerprint applied and the
// proxy, if any, passed as a launch argument. The caller owns the returned
// handle and must Close it on every exit path.
func (f *Factory) Open(ctx context.Context, fp serp.Fingerprint, proxy *serp.ProxyHandle) (serp.Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(fp.UserAgent),
		chromedp.WindowSize(int(fp.ViewportWidth), int(fp.ViewportHeight)),
	)
	if proxy != nil {
		opts = append(opts, chromedp.ProxyServer(proxy.Server))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	c := &Chrome{
		cfg:           f.cfg,
		logger:        f.logger,
		fp:            fp,
		proxy:         proxy,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}
	if err := c.openPage(""); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Chrome is the per-session browser handle. It is owned exclusively by the
// session that created it; keyword processing is sequential, so no locking.
type Chrome struct {
	cfg    Config
	logger *zap.Logger
	fp     serp.Fingerprint
	proxy  *serp.ProxyHandle

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	pageCtx    context.Context
	pageCancel context.CancelFunc
	// pageBrowserContext is set when the live page belongs to a dedicated
	// CDP browser context created for a proxy swap.
	pageBrowserContext cdp.BrowserContextID
}

// openPage attaches a fresh page. With a target ID it attaches to an already
// created target (proxy-swap path); otherwise it opens a tab in the default
// browser context.
func (c *Chrome) openPage(targetID target.ID) error {
	if targetID != "" {
		c.pageCtx, c.pageCancel = chromedp.NewContext(c.browserCtx, chromedp.WithTargetID(targetID))
	} else {
		c.pageCtx, c.pageCancel = chromedp.NewContext(c.browserCtx)
	}
	if err := chromedp.Run(c.pageCtx); err != nil {
		return fmt.Errorf("attach page: %w", err)
	}
	if c.proxy != nil && c.proxy.Username != "" {
		c.listenForAuth(c.pageCtx, c.proxy)
	}
	return nil
}

// listenForAuth answers the proxy's credential challenge. Fetch interception
// is enabled per-navigation in Navigate; the listener lives for the page.
func (c *Chrome) listenForAuth(pageCtx context.Context, proxy *serp.ProxyHandle) {
	username, password := proxy.Username, proxy.Password
	chromedp.ListenTarget(pageCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *fetch.EventAuthRequired:
			go func() {
				err := chromedp.Run(pageCtx, chromedp.ActionFunc(func(ctx context.Context) error {
					return fetch.ContinueWithAuth(e.RequestID, &fetch.AuthChallengeResponse{
						Response: fetch.AuthChallengeResponseResponseProvideCredentials,
						Username: username,
						Password: password,
					}).Do(ctx)
				}))
				if err != nil && c.logger != nil {
					c.logger.Debug("proxy auth continue failed", zap.Error(err))
				}
			}()
		case *fetch.EventRequestPaused:
			go func() {
				err := chromedp.Run(pageCtx, chromedp.ActionFunc(func(ctx context.Context) error {
					return fetch.ContinueRequest(e.RequestID).Do(ctx)
				}))
				if err != nil && c.logger != nil {
					c.logger.Debug("request continue failed", zap.Error(err))
				}
			}()
		}
	})
}

// fingerprintActions reapplies the session identity. Run before every
// navigation so a swapped page presents the same (or regenerated) identity.
func (c *Chrome) fingerprintActions() chromedp.Tasks {
	mobile := strings.Contains(c.fp.UserAgent, "Mobile") || strings.Contains(c.fp.UserAgent, "iPhone")
	return chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(c.fp.UserAgent).WithAcceptLanguage(c.fp.AcceptLanguage),
		emulation.SetTimezoneOverride(c.fp.Timezone),
		emulation.SetDeviceMetricsOverride(c.fp.ViewportWidth, c.fp.ViewportHeight, 1, mobile),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": c.fp.AcceptLanguage}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
	}
}

// Navigate loads url on the live page, applying the fingerprint first. A
// timeout or load failure surfaces as NavigationTimeoutError with the URL
// attached.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if c.pageCtx == nil {
		return fmt.Errorf("navigate: no live page")
	}
	navCtx, cancel := context.WithTimeout(c.pageCtx, c.cfg.NavigationTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	tasks := chromedp.Tasks{c.fingerprintActions()}
	if c.proxy != nil && c.proxy.Username != "" {
		tasks = append(tasks, fetch.Enable().WithHandleAuthRequests(true))
	}
	tasks = append(tasks,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)

	if err := chromedp.Run(navCtx, tasks); err != nil {
		return &serp.NavigationTimeoutError{URL: url, Err: err}
	}
	return nil
}

// WaitForAny polls for the first selector that yields nodes, up to timeout.
// Timing out is not an error: extraction proceeds best-effort on whatever DOM
// is present, so (false, nil) means "proceed, but mark the result partial".
func (c *Chrome) WaitForAny(ctx context.Context, selectors []string, timeout time.Duration) (bool, error) {
	if c.pageCtx == nil {
		return false, fmt.Errorf("selector wait: no live page")
	}
	deadline := time.Now().Add(timeout)
	for {
		for _, sel := range selectors {
			var nodes []*cdp.Node
			err := chromedp.Run(c.pageCtx,
				chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
			if err != nil {
				return false, fmt.Errorf("poll selector %q: %w", sel, err)
			}
			if len(nodes) > 0 {
				return true, nil
			}
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(c.cfg.SelectorPoll):
		}
	}
}

// HTML snapshots the rendered document.
func (c *Chrome) HTML(ctx context.Context) (string, error) {
	if c.pageCtx == nil {
		return "", fmt.Errorf("snapshot: no live page")
	}
	snapCtx, cancel := context.WithTimeout(c.pageCtx, c.cfg.NavigationTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	var html string
	if err := chromedp.Run(snapCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("outer html: %w", err)
	}
	return html, nil
}

// SwapProxy closes the live page and opens a replacement in a dedicated
// browser context routed through the new proxy. The browser process is kept:
// relaunching per rotation costs seconds and burns the warm profile. The old
// page is guaranteed closed before the new one opens.
func (c *Chrome) SwapProxy(ctx context.Context, proxy *serp.ProxyHandle, fp serp.Fingerprint) error {
	if proxy == nil {
		return fmt.Errorf("swap proxy: nil handle")
	}
	c.closePage()

	c.proxy = proxy
	c.fp = fp

	var targetID target.ID
	err := chromedp.Run(c.browserCtx, chromedp.ActionFunc(func(runCtx context.Context) error {
		bctx, err := target.CreateBrowserContext().
			WithProxyServer(proxy.Server).
			WithDisposeOnDetach(true).
			Do(runCtx)
		if err != nil {
			return fmt.Errorf("create browser context: %w", err)
		}
		c.pageBrowserContext = bctx
		tid, err := target.CreateTarget("about:blank").WithBrowserContextID(bctx).Do(runCtx)
		if err != nil {
			return fmt.Errorf("create target: %w", err)
		}
		targetID = tid
		return nil
	}))
	if err != nil {
		return err
	}
	if err := c.openPage(targetID); err != nil {
		return err
	}
	if c.logger != nil {
		c.logger.Info("proxy swapped", zap.String("server", proxy.Server))
	}
	return nil
}

func (c *Chrome) closePage() {
	if c.pageCancel != nil {
		c.pageCancel()
		c.pageCancel = nil
		c.pageCtx = nil
	}
	if c.pageBrowserContext != "" && c.browserCtx != nil {
		err := chromedp.Run(c.browserCtx, chromedp.ActionFunc(func(runCtx context.Context) error {
			return target.DisposeBrowserContext(c.pageBrowserContext).Do(runCtx)
		}))
		if err != nil && c.logger != nil {
			c.logger.Debug("dispose browser context failed", zap.Error(err))
		}
		c.pageBrowserContext = ""
	}
}

// Close tears down page then browser, tolerating either being already gone.
// Safe to call more than once.
func (c *Chrome) Close() error {
	c.closePage()
	if c.browserCancel != nil {
		c.browserCancel()
		c.browserCancel = nil
		c.browserCtx = nil
	}
	if c.allocCancel != nil {
		c.allocCancel()
		c.allocCancel = nil
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
