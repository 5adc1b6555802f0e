// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the recognized environment options. Directory settings are
// deliberately optional at load time: a deployment missing them answers
// upstream-failure on the auth endpoints instead of crashing at startup.
type Config struct {
	ListenAddr string `env:"RANGDA_LISTEN_ADDR" envDefault:":9000"`

	// RedisURL enables the Redis challenge/invalidation stores and the
	// redisstream event publisher. Empty selects the in-memory adapters.
	RedisURL string `env:"RANGDA_REDIS_URL"`

	DirectoryEndpoint string `env:"RANGDA_DIRECTORY_ENDPOINT"`
	DirectoryProject  string `env:"RANGDA_DIRECTORY_PROJECT"`
	DirectoryKey      string `env:"RANGDA_DIRECTORY_KEY"`

	RPName    string   `env:"RANGDA_WEBAUTHN_RP_NAME" envDefault:"Rangda"`
	RPID      string   `env:"RANGDA_WEBAUTHN_RP_ID"   envDefault:"localhost"`
	RPOrigins []string `env:"RANGDA_WEBAUTHN_RP_ORIGINS" envSeparator:","`

	ChallengeTTL time.Duration `env:"RANGDA_CHALLENGE_TTL" envDefault:"2m"`
	AccessTTL    time.Duration `env:"RANGDA_ACCESS_TTL"    envDefault:"5m"`
	RefreshTTL   time.Duration `env:"RANGDA_REFRESH_TTL"   envDefault:"120h"`
}

// Load parses configuration from the environment
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if len(cfg.RPOrigins) == 0 {
		cfg.RPOrigins = []string{"http://" + cfg.RPID + ":8080"}
	}
	return cfg, nil
}
