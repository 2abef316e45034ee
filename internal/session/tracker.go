// Package session drives tracking sessions: the sequential keyword loop,
// anti-detection pacing, proxy failover, and guaranteed resource cleanup.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rankscout/serptrack/internal/engine"
	"github.com/rankscout/serptrack/internal/metrics"
	"github.com/rankscout/serptrack/internal/serp"
)

// Config sets the pacing contract for a session. Delays are deliberate
// anti-detection throttling, not tunables to minimize.
type Config struct {
	MinKeywordDelay time.Duration
	MaxKeywordDelay time.Duration
	ErrorPenalty    time.Duration
	SelectorTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinKeywordDelay <= 0 {
		c.MinKeywordDelay = 3 * time.Second
	}
	if c.MaxKeywordDelay <= c.MinKeywordDelay {
		// Keep the window valid for any positive minimum, preserving the
		// default 3s..8s spread.
		c.MaxKeywordDelay = c.MinKeywordDelay + 5*time.Second
	}
	if c.ErrorPenalty <= 0 {
		c.ErrorPenalty = 5 * time.Second
	}
	if c.SelectorTimeout <= 0 {
		c.SelectorTimeout = 10 * time.Second
	}
	return c
}

// Tracker is the session factory. All dependencies are injected; there is no
// process-wide tracker state.
type Tracker struct {
	browsers     serp.BrowserFactory
	proxies      serp.ProxyManager
	fingerprints serp.FingerprintProvider
	clock        serp.Clock
	ids          serp.IDGenerator
	cfg          Config
	logger       *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand

	// sleep is swappable so tests observe pacing without waiting it out.
	sleep func(ctx context.Context, delay time.Duration)
}

// New constructs a Tracker. The random source feeds the inter-keyword jitter
// and is injectable so tests can assert the delay range deterministically.
func New(
	browsers serp.BrowserFactory,
	proxies serp.ProxyManager,
	fingerprints serp.FingerprintProvider,
	clock serp.Clock,
	ids serp.IDGenerator,
	rnd *rand.Rand,
	cfg Config,
	logger *zap.Logger,
) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		browsers:     browsers,
		proxies:      proxies,
		fingerprints: fingerprints,
		clock:        clock,
		ids:          ids,
		rnd:          rnd,
		cfg:          cfg.withDefaults(),
		logger:       logger,
	}
	t.sleep = t.timerPause
	return t
}

// Run executes one tracking session. A single keyword's failure never aborts
// the run; only initialization failures propagate, and cleanup executes on
// every exit path. The returned session satisfies
// Succeeded+Failed == len(Keywords) once EndedAt is stamped.
func (t *Tracker) Run(ctx context.Context, req serp.TrackingRequest) (*serp.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracking request: %w", err)
	}

	id, err := t.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	logger := t.logger.With(zap.String("session_id", id), zap.String("engine", string(req.Engine)))

	adapter, err := engine.ForEngine(req.Engine)
	if err != nil {
		return nil, fmt.Errorf("resolve adapter: %w", err)
	}

	fp := t.fingerprints.Generate(req.Device)

	var currentProxy *serp.ProxyHandle
	if req.UseProxy {
		if req.Proxy != nil {
			currentProxy = req.Proxy
		} else {
			currentProxy = t.proxies.NextProxy()
			if currentProxy == nil {
				return nil, &serp.InitializationError{Reason: "no usable proxy available"}
			}
		}
	}

	session := &serp.Session{
		ID:        id,
		Request:   req,
		StartedAt: t.clock.Now(),
	}

	br, err := t.browsers.Open(ctx, fp, currentProxy)
	if err != nil {
		session.EndedAt = t.clock.Now()
		metrics.RecordSession(string(req.Engine), "init_failed", session.EndedAt.Sub(session.StartedAt))
		return nil, &serp.InitializationError{Reason: "browser launch failed", Err: err}
	}
	defer func() {
		if closeErr := br.Close(); closeErr != nil {
			logger.Warn("browser close failed", zap.Error(closeErr))
		}
		session.EndedAt = t.clock.Now()
		metrics.RecordSession(string(req.Engine), "completed", session.EndedAt.Sub(session.StartedAt))
	}()

	logger.Info("session started",
		zap.Int("keywords", len(req.Keywords)),
		zap.Bool("proxied", currentProxy != nil),
		zap.String("device", string(req.Device)))

	for i, keyword := range req.Keywords {
		if ctx.Err() != nil {
			// Cancellation boundary is between keywords: everything not yet
			// attempted counts as failed so the session counters still add up.
			t.failRemaining(session, req.Keywords[i:], ctx.Err())
			break
		}

		if err := t.proxies.Throttle(ctx); err != nil {
			t.failRemaining(session, req.Keywords[i:], err)
			break
		}

		ranking, err := t.trackKeyword(ctx, br, adapter, keyword, req)
		if err != nil {
			session.Errors = append(session.Errors, fmt.Sprintf("keyword %q: %v", keyword, err))
			session.Failed++
			metrics.RecordKeyword(string(req.Engine), "failure")
			logger.Warn("keyword failed", zap.String("keyword", keyword), zap.Error(err))

			currentProxy = t.failover(ctx, br, currentProxy, req, &fp, logger)
			t.sleep(ctx, t.cfg.ErrorPenalty)
		} else {
			session.Results = append(session.Results, ranking)
			session.Succeeded++
			metrics.RecordKeyword(string(req.Engine), "success")
			if ranking.Partial {
				metrics.RecordPartialExtraction()
			}
			if currentProxy != nil {
				t.proxies.MarkSuccess(currentProxy.Server)
			}
		}

		if i < len(req.Keywords)-1 {
			t.sleep(ctx, t.keywordJitter())
		}
	}

	logger.Info("session finished",
		zap.Int("succeeded", session.Succeeded),
		zap.Int("failed", session.Failed))
	return session, nil
}

// trackKeyword runs one query end to end: build URL, navigate, wait for the
// result list, snapshot, extract, match.
func (t *Tracker) trackKeyword(
	ctx context.Context,
	br serp.Browser,
	adapter serp.Adapter,
	keyword string,
	req serp.TrackingRequest,
) (serp.KeywordRanking, error) {
	searchURL := adapter.SearchURL(keyword, req)

	navStart := t.clock.Now()
	if err := br.Navigate(ctx, searchURL); err != nil {
		return serp.KeywordRanking{}, err
	}
	metrics.RecordNavigation(string(req.Engine), t.clock.Now().Sub(navStart))

	found, err := br.WaitForAny(ctx, adapter.ResultSelectors(), t.cfg.SelectorTimeout)
	if err != nil {
		return serp.KeywordRanking{}, err
	}

	html, err := br.HTML(ctx)
	if err != nil {
		return serp.KeywordRanking{}, err
	}

	results := adapter.Parse(html, keyword, req.MaxResults)
	if len(results) == 0 {
		return serp.KeywordRanking{}, fmt.Errorf("no organic results extracted")
	}

	rank, matched, competitors := serp.Match(results, req.TargetDomain)

	ranking := serp.KeywordRanking{
		Keyword:     keyword,
		Rank:        rank,
		Engine:      req.Engine,
		Location:    req.Location,
		Device:      req.Device,
		CheckedAt:   t.clock.Now(),
		Features:    adapter.Features(html),
		Competitors: competitors,
		Partial:     !found,
	}
	if matched != nil {
		ranking.MatchedURL = matched.URL
		ranking.MatchedTitle = matched.Title
		ranking.MatchedDescription = matched.Snippet
	}
	return ranking, nil
}

// failover reports the failure and, when a replacement proxy is granted,
// swaps only the browsing context. Mobile sessions regenerate the
// fingerprint on swap; desktop keeps the existing one.
func (t *Tracker) failover(
	ctx context.Context,
	br serp.Browser,
	current *serp.ProxyHandle,
	req serp.TrackingRequest,
	fp *serp.Fingerprint,
	logger *zap.Logger,
) *serp.ProxyHandle {
	if current == nil {
		return nil
	}
	t.proxies.MarkFailed(current.Server)

	next := t.proxies.NextProxy()
	if next == nil {
		logger.Warn("no replacement proxy available, continuing on current")
		return current
	}
	if req.Device == serp.DeviceMobile {
		*fp = t.fingerprints.Generate(req.Device)
	}
	if err := br.SwapProxy(ctx, next, *fp); err != nil {
		logger.Warn("proxy swap failed", zap.Error(err))
		return current
	}
	metrics.RecordProxyFailover()
	return next
}

func (t *Tracker) failRemaining(session *serp.Session, keywords []string, cause error) {
	for _, kw := range keywords {
		session.Errors = append(session.Errors, fmt.Sprintf("keyword %q: session interrupted: %v", kw, cause))
		session.Failed++
	}
}

// keywordJitter draws the inter-keyword delay from [MinKeywordDelay,
// MaxKeywordDelay]. A fresh draw per call: a fixed interval is its own
// detection signature.
func (t *Tracker) keywordJitter() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	spread := int64(t.cfg.MaxKeywordDelay - t.cfg.MinKeywordDelay)
	return t.cfg.MinKeywordDelay + time.Duration(t.rnd.Int63n(spread+1))
}

func (t *Tracker) timerPause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
