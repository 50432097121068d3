// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config holding every default.
// - Load layers a YAML file and PONG_* environment variables on top.
// - Validate reports the first inconsistent setting wrapped in ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"

	repository "github.com/okian/pong/internal/adapters/repository"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the persistence backend: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the data source name for sqlite and postgres.
	StoreDSN string `koanf:"store_dsn"`

	// StoreMaxOpenConns caps the postgres connection pool.
	StoreMaxOpenConns int `koanf:"store_max_open_conns"`

	// StoreConnMaxLifetimeSec bounds how long a pooled connection is reused.
	StoreConnMaxLifetimeSec int `koanf:"store_conn_max_lifetime_sec"`

	// StoreMigrate applies the embedded schema when the store opens.
	StoreMigrate bool `koanf:"store_migrate"`

	// DefaultRating is assigned to newly registered players.
	DefaultRating float64 `koanf:"default_rating"`

	// BaseK, MinK and MaxK parameterize the dynamic K-factor.
	BaseK float64 `koanf:"base_k"`
	MinK  float64 `koanf:"min_k"`
	MaxK  float64 `koanf:"max_k"`

	// KWindow is the number of recent matches that drive the K-factor.
	KWindow int `koanf:"k_window"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MaxHistoryLimit caps the history and match listing endpoints.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// DedupeSize bounds the number of remembered idempotency keys.
	DedupeSize int `koanf:"dedupe_size"`

	// CORSAllowedOrigins lists origins allowed to call the API from a browser.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		StoreDriver:             repository.DriverMemory,
		StoreMaxOpenConns:       20,
		StoreConnMaxLifetimeSec: 2700,
		StoreMigrate:            true,
		DefaultRating:           1000,
		BaseK:                   32,
		MinK:                    16,
		MaxK:                    48,
		KWindow:                 10,
		MaxLeaderboardLimit:     100,
		MaxHistoryLimit:         200,
		DedupeSize:              50_000,
		CORSAllowedOrigins:      []string{"*"},
	}
}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MinK <= 0 || c.MaxK < c.MinK:
		return fmt.Errorf("%w: k bounds [%v, %v] are invalid", ErrInvalidConfig, c.MinK, c.MaxK)
	case c.BaseK < c.MinK || c.BaseK > c.MaxK:
		return fmt.Errorf("%w: base_k %v outside [%v, %v]", ErrInvalidConfig, c.BaseK, c.MinK, c.MaxK)
	case c.KWindow <= 0:
		return fmt.Errorf("%w: k_window must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0 || c.MaxHistoryLimit <= 0:
		return fmt.Errorf("%w: limits must be positive", ErrInvalidConfig)
	case c.StoreMaxOpenConns <= 0 || c.StoreConnMaxLifetimeSec <= 0:
		return fmt.Errorf("%w: store pool settings must be positive", ErrInvalidConfig)
	}

	switch c.StoreDriver {
	case repository.DriverMemory:
	case repository.DriverSQLite, repository.DriverPostgres:
		if strings.TrimSpace(c.StoreDSN) == "" {
			return fmt.Errorf("%w: store_dsn is required for %s", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
