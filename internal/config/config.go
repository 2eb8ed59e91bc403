package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakTokens = []string{
	"change-me", "dev-token-change-me", "secret", "token", "password",
}

type Config struct {
	Port                 int    `env:"PORT" envDefault:"8090"`
	DatabaseURL          string `env:"DATABASE_URL,required"`
	RedisURL             string `env:"REDIS_URL,required"`
	OwnerID              string `env:"OWNER_ID,required"`
	DeviceToken          string `env:"DEVICE_TOKEN"`
	BridgeBaseURL        string `env:"BRIDGE_BASE_URL" envDefault:"http://127.0.0.1:8787"`
	APIBaseURL           string `env:"API_BASE_URL" envDefault:""`
	RequestExpirySeconds int    `env:"REQUEST_EXPIRY_SECONDS" envDefault:"45"`
	SessionMaxAgeHours   int    `env:"SESSION_MAX_AGE_HOURS" envDefault:"12"`
	IngressRatePerMin    int    `env:"INGRESS_RATE_PER_MIN" envDefault:"120"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
}

// RequestExpiry is how long an incoming request may stay pending before it
// auto-expires. The same value is passed to the device as the notification
// timeout so both sides agree on the deadline.
func (c *Config) RequestExpiry() time.Duration {
	return time.Duration(c.RequestExpirySeconds) * time.Second
}

func (c *Config) SessionMaxAge() time.Duration {
	return time.Duration(c.SessionMaxAgeHours) * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.RequestExpirySeconds < 5 {
		return fmt.Errorf("REQUEST_EXPIRY_SECONDS must be at least 5, got %d", c.RequestExpirySeconds)
	}

	if isProduction {
		if err := validateToken("DEVICE_TOKEN", c.DeviceToken); err != nil {
			return err
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.APIBaseURL == "" {
			log.Warn().Msg("API_BASE_URL is empty in production: requester decline notices will not be delivered")
		}
	}

	return nil
}

func validateToken(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -hex 32)", name)
	}
	for _, weak := range knownWeakTokens {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong token in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
