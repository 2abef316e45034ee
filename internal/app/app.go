// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/rankscout/serptrack/internal/api"
	"github.com/rankscout/serptrack/internal/browser"
	"github.com/rankscout/serptrack/internal/clock/system"
	"github.com/rankscout/serptrack/internal/config"
	"github.com/rankscout/serptrack/internal/id/uuid"
	"github.com/rankscout/serptrack/internal/logging"
	"github.com/rankscout/serptrack/internal/metrics"
	"github.com/rankscout/serptrack/internal/proxy"
	"github.com/rankscout/serptrack/internal/serp"
	"github.com/rankscout/serptrack/internal/session"
	"github.com/rankscout/serptrack/internal/storage/postgres"
)

// App holds the shared, long-lived services for the service binary. It is
// initialized once at startup and torn down via Close.
type App struct {
	Logger  *zap.Logger
	Tracker *session.Tracker
	Server  *api.Server

	store *postgres.PerformanceStore
}

// New builds the full service graph from configuration. It fails fast when a
// critical dependency cannot be initialized. Persistence is optional: with no
// DSN configured the service runs extraction-only and skips trend recording.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics.Init()

	handles := make([]serp.ProxyHandle, 0, len(cfg.Proxy.Pool))
	for _, p := range cfg.Proxy.Pool {
		handles = append(handles, serp.ProxyHandle{
			Server:   p.Server,
			Username: p.Username,
			Password: p.Password,
		})
	}
	proxies := proxy.NewManager(handles, proxy.Config{
		RequestsPerMinute: cfg.Proxy.RequestsPerMinute,
		FailureThreshold:  cfg.Proxy.FailureThreshold,
	}, logger.Named("proxy"))

	browsers := browser.NewFactory(browser.Config{
		Headless:          cfg.Browser.Headless,
		NavigationTimeout: time.Duration(cfg.Browser.NavTimeoutSec) * time.Second,
		SelectorPoll:      time.Duration(cfg.Browser.SelectorPollMs) * time.Millisecond,
	}, logger.Named("browser"))

	seed := cfg.Tracker.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))

	tracker := session.New(
		browsers,
		proxies,
		serp.NewRandomFingerprintProvider(rnd),
		system.New(),
		uuid.New(),
		rnd,
		session.Config{
			MinKeywordDelay: time.Duration(cfg.Tracker.MinKeywordDelayMs) * time.Millisecond,
			MaxKeywordDelay: time.Duration(cfg.Tracker.MaxKeywordDelayMs) * time.Millisecond,
			ErrorPenalty:    time.Duration(cfg.Tracker.ErrorPenaltyMs) * time.Millisecond,
			SelectorTimeout: time.Duration(cfg.Browser.SelectorWaitSec) * time.Second,
		},
		logger.Named("session"),
	)

	var (
		store    *postgres.PerformanceStore
		recorder api.TrendRecorder
	)
	if cfg.DB.DSN != "" {
		store, err = postgres.NewPerformanceStore(ctx, postgres.PerformanceStoreConfig{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init performance store: %w", err)
		}
		recorder = session.NewRecorder(store, cfg.History.LookbackDays, logger.Named("recorder"))
		logger.Info("performance store connected", zap.String("table", cfg.DB.Table))
	} else {
		logger.Info("no database configured, running extraction-only")
	}

	server := api.NewServer(
		tracker,
		recorder,
		time.Duration(cfg.Server.RequestTimeoutSec)*time.Second,
		logger.Named("api"),
	)

	return &App{
		Logger:  logger,
		Tracker: tracker,
		Server:  server,
		store:   store,
	}, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.Logger.Sync()
}
