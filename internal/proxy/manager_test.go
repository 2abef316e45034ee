package proxy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rankscout/serptrack/internal/serp"
)

func handles(servers ...string) []serp.ProxyHandle {
	out := make([]serp.ProxyHandle, len(servers))
	for i, s := range servers {
		out[i] = serp.ProxyHandle{Server: s}
	}
	return out
}

func TestNextProxyRoundRobin(t *testing.T) {
	m := NewManager(handles("a:8080", "b:8080"), Config{}, zap.NewNop())

	require.Equal(t, "a:8080", m.NextProxy().Server)
	require.Equal(t, "b:8080", m.NextProxy().Server)
	require.Equal(t, "a:8080", m.NextProxy().Server)
}

func TestNextProxyEmptyPool(t *testing.T) {
	m := NewManager(nil, Config{}, zap.NewNop())
	require.Nil(t, m.NextProxy())
}

func TestQuarantineAfterThreshold(t *testing.T) {
	m := NewManager(handles("a:8080", "b:8080"), Config{FailureThreshold: 2}, zap.NewNop())

	m.MarkFailed("a:8080")
	require.Equal(t, 2, m.HealthyCount())
	m.MarkFailed("a:8080")
	require.Equal(t, 1, m.HealthyCount())

	for i := 0; i < 4; i++ {
		require.Equal(t, "b:8080", m.NextProxy().Server, "quarantined proxy must be skipped")
	}

	m.MarkFailed("b:8080")
	m.MarkFailed("B:8080")
	require.Nil(t, m.NextProxy(), "fully quarantined pool yields nil")
}

func TestMarkSuccessResetsFailures(t *testing.T) {
	m := NewManager(handles("a:8080"), Config{FailureThreshold: 2}, zap.NewNop())

	m.MarkFailed("a:8080")
	m.MarkSuccess("a:8080")
	m.MarkFailed("a:8080")
	require.Equal(t, 1, m.HealthyCount(), "success between failures resets the count")
}

func TestThrottleHonorsContext(t *testing.T) {
	m := NewManager(handles("a:8080"), Config{RequestsPerMinute: 1}, zap.NewNop())

	// First wait consumes the burst token.
	require.NoError(t, m.Throttle(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.Error(t, m.Throttle(ctx), "second request inside the window should block until ctx expires")
}
