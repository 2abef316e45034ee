// Package proxy implements the upstream proxy pool consumed by tracking
// sessions: rotation, request throttling, and failure quarantine.
package proxy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rankscout/serptrack/internal/serp"
)

const defaultFailureThreshold = 3

// Config controls pool behavior.
type Config struct {
	RequestsPerMinute int
	FailureThreshold  int
}

// Manager hands out proxies round-robin, throttles requests globally, and
// quarantines proxies after repeated failures.
type Manager struct {
	mu          sync.Mutex
	handles     []serp.ProxyHandle
	next        int
	failures    map[string]int
	quarantined map[string]struct{}
	threshold   int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewManager builds a Manager over a fixed proxy list. An empty list is
// valid: NextProxy returns nil and sessions run direct.
func NewManager(handles []serp.ProxyHandle, cfg Config, logger *zap.Logger) *Manager {
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = defaultFailureThreshold
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}
	return &Manager{
		handles:     append([]serp.ProxyHandle(nil), handles...),
		failures:    make(map[string]int),
		quarantined: make(map[string]struct{}),
		threshold:   threshold,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		logger:      logger,
	}
}

// NextProxy returns the next healthy proxy, or nil when the pool is empty or
// fully quarantined.
func (m *Manager) NextProxy() *serp.ProxyHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < len(m.handles); i++ {
		h := m.handles[m.next%len(m.handles)]
		m.next++
		if _, bad := m.quarantined[key(h.Server)]; bad {
			continue
		}
		out := h
		return &out
	}
	return nil
}

// Throttle blocks until the pool's rate budget permits the next request.
func (m *Manager) Throttle(ctx context.Context) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttle wait: %w", err)
	}
	return nil
}

// MarkSuccess clears the failure count for a proxy.
func (m *Manager) MarkSuccess(server string) {
	if server == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, key(server))
}

// MarkFailed counts a failure and quarantines the proxy once it crosses the
// threshold.
func (m *Manager) MarkFailed(server string) {
	if server == "" {
		return
	}
	k := key(server)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, bad := m.quarantined[k]; bad {
		return
	}
	m.failures[k]++
	if m.failures[k] >= m.threshold {
		m.quarantined[k] = struct{}{}
		if m.logger != nil {
			m.logger.Warn("proxy quarantined", zap.String("server", server), zap.Int("failures", m.failures[k]))
		}
	}
}

// HealthyCount reports how many proxies remain usable.
func (m *Manager) HealthyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, h := range m.handles {
		if _, bad := m.quarantined[key(h.Server)]; !bad {
			n++
		}
	}
	return n
}

func key(server string) string {
	return strings.ToLower(strings.TrimSpace(server))
}
