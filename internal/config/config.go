// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	DB      DBConfig      `mapstructure:"db"`
	Browser BrowserConfig `mapstructure:"browser"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	History HistoryConfig `mapstructure:"history"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port              int `mapstructure:"port"`
	RequestTimeoutSec int `mapstructure:"request_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DBConfig controls access to the relational database. An empty DSN
// disables persistence and the service runs extraction-only.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// BrowserConfig configures the headless rendering subsystem.
type BrowserConfig struct {
	Headless        bool `mapstructure:"headless"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	SelectorPollMs  int  `mapstructure:"selector_poll_ms"`
	SelectorWaitSec int  `mapstructure:"selector_wait_seconds"`
}

// TrackerConfig governs keyword pacing inside a session.
type TrackerConfig struct {
	MinKeywordDelayMs int   `mapstructure:"min_keyword_delay_ms"`
	MaxKeywordDelayMs int   `mapstructure:"max_keyword_delay_ms"`
	ErrorPenaltyMs    int   `mapstructure:"error_penalty_ms"`
	Seed              int64 `mapstructure:"seed"`
}

// ProxyEntry describes one upstream proxy in the pool.
type ProxyEntry struct {
	Server   string `mapstructure:"server"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// ProxyConfig holds the proxy pool and failover policy.
type ProxyConfig struct {
	Pool              []ProxyEntry `mapstructure:"pool"`
	RequestsPerMinute int          `mapstructure:"requests_per_minute"`
	FailureThreshold  int          `mapstructure:"failure_threshold"`
}

// HistoryConfig controls trend comparison.
type HistoryConfig struct {
	LookbackDays int `mapstructure:"lookback_days"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SERPTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 600)
	v.SetDefault("logging.development", true)
	v.SetDefault("db.table", "performance_tracking")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.nav_timeout_seconds", 30)
	v.SetDefault("browser.selector_poll_ms", 250)
	v.SetDefault("browser.selector_wait_seconds", 10)
	v.SetDefault("tracker.min_keyword_delay_ms", 3000)
	v.SetDefault("tracker.max_keyword_delay_ms", 8000)
	v.SetDefault("tracker.error_penalty_ms", 5000)
	v.SetDefault("proxy.requests_per_minute", 10)
	v.SetDefault("proxy.failure_threshold", 3)
	v.SetDefault("history.lookback_days", 30)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Browser.NavTimeoutSec <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	if c.Tracker.MinKeywordDelayMs <= 0 {
		return fmt.Errorf("tracker.min_keyword_delay_ms must be > 0")
	}
	if c.Tracker.MaxKeywordDelayMs < c.Tracker.MinKeywordDelayMs {
		return fmt.Errorf("tracker.max_keyword_delay_ms must be >= tracker.min_keyword_delay_ms")
	}
	for i, p := range c.Proxy.Pool {
		if p.Server == "" {
			return fmt.Errorf("proxy.pool[%d].server must be set", i)
		}
	}
	if c.History.LookbackDays <= 0 {
		return fmt.Errorf("history.lookback_days must be > 0")
	}
	return nil
}
