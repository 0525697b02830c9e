package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerEnv holds process settings for cmd/server.
type ServerEnv struct {
	HTTPAddr      string        `env:"COINMERGE_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr      string        `env:"COINMERGE_GRPC_ADDR" envDefault:":9090"`
	DBPath        string        `env:"COINMERGE_DB_PATH" envDefault:"data/coinmerge.db"`
	ConfigDir     string        `env:"COINMERGE_CONFIG_DIR" envDefault:"configs"`
	Profile       string        `env:"COINMERGE_PROFILE" envDefault:"default"`
	Locale        string        `env:"COINMERGE_LOCALE" envDefault:"ko"`
	WatchInterval time.Duration `env:"COINMERGE_WATCH_INTERVAL" envDefault:"5s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServerEnv parses ServerEnv. Empty variables fall back to the defaults.
func LoadServerEnv() (ServerEnv, error) {
	var cfg ServerEnv
	if err := ParseEnv(&cfg); err != nil {
		return ServerEnv{}, err
	}
	if cfg.WatchInterval < 0 {
		return ServerEnv{}, fmt.Errorf("COINMERGE_WATCH_INTERVAL must be >= 0")
	}
	return cfg, nil
}
