package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Store names accepted by CHESTLINK_STORE.
const (
	StoreFile  = "file"
	StoreStorm = "storm"
)

// A Config holds the process configuration read from the environment.
type Config struct {
	DataPath        string        `env:"CHESTLINK_DATA_PATH"         envDefault:"data"`
	SettingsPath    string        `env:"CHESTLINK_SETTINGS_PATH"     envDefault:"upgrades.yml"`
	Store           string        `env:"CHESTLINK_STORE"             envDefault:"file"`
	Autosave        string        `env:"CHESTLINK_AUTOSAVE"          envDefault:"@every 5m"`
	Tick            time.Duration `env:"CHESTLINK_TICK"              envDefault:"50ms"`
	PendingBindTTL  time.Duration `env:"CHESTLINK_PENDING_BIND_TTL"  envDefault:"5m"`
	StartingBalance float64       `env:"CHESTLINK_STARTING_BALANCE"  envDefault:"0"`
	RateLimit       float64       `env:"CHESTLINK_RATE_LIMIT"        envDefault:"20"`
}

// ParseEnv loads the configuration from environment variables.
func ParseEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return c, errors.Wrap(err, "could not parse env")
	}

	switch c.Store {
	case StoreFile, StoreStorm:
	default:
		return c, errors.Errorf("unknown store %q", c.Store)
	}
	return c, nil
}
