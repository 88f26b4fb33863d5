// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/perceforge/dotafetch/pkg/logging"
)

// Config holds everything the proxy service needs to start.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// RedisAddr, RedisPassword and RedisDB configure the shared store
	// backing the cache and the rate limiter.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// StratzTokens is the primary provider key pool, loaded from
	// STRATZ_TOKEN_1..N. Empty is valid: the service runs fallback-only.
	StratzTokens []string

	// StratzBaseURL and OpenDotaBaseURL override the upstream endpoints,
	// mainly for tests against a mock.
	StratzBaseURL   string
	OpenDotaBaseURL string

	// PrimaryLimit / PrimaryWindow and SecondaryLimit / SecondaryWindow
	// are the fixed-window budgets per provider.
	PrimaryLimit    int
	PrimaryWindow   time.Duration
	SecondaryLimit  int
	SecondaryWindow time.Duration

	// KeyCooldown is how long a key rests after a quota failure.
	KeyCooldown time.Duration

	// ProviderTimeout is the per-call deadline on upstream requests.
	ProviderTimeout time.Duration

	LogLevel  logging.LogLevel
	LogPretty bool
}

// maxTokenSlots bounds the STRATZ_TOKEN_1..N scan. Slots are read in
// order and the scan stops at the first unset slot, so gaps are not
// supported.
const maxTokenSlots = 32

// FromEnv builds a Config from environment variables, applying defaults
// for everything unset.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		RedisAddr:       getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		StratzTokens:    tokensFromEnv(),
		StratzBaseURL:   getEnv("STRATZ_BASE_URL", ""),
		OpenDotaBaseURL: getEnv("OPENDOTA_BASE_URL", ""),
		LogLevel:        logging.LogLevel(getEnv("LOG_LEVEL", string(logging.LevelInfo))),
		LogPretty:       getEnv("LOG_PRETTY", "false") == "true",
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.PrimaryLimit, err = getEnvInt("PRIMARY_RATE_LIMIT", 90); err != nil {
		return Config{}, err
	}
	if cfg.PrimaryWindow, err = getEnvDuration("PRIMARY_RATE_WINDOW", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SecondaryLimit, err = getEnvInt("SECONDARY_RATE_LIMIT", 50); err != nil {
		return Config{}, err
	}
	if cfg.SecondaryWindow, err = getEnvDuration("SECONDARY_RATE_WINDOW", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.KeyCooldown, err = getEnvDuration("KEY_COOLDOWN", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ProviderTimeout, err = getEnvDuration("PROVIDER_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// tokensFromEnv reads STRATZ_TOKEN_1, STRATZ_TOKEN_2, ... until the
// first unset slot.
func tokensFromEnv() []string {
	var tokens []string
	for i := 1; i <= maxTokenSlots; i++ {
		token := os.Getenv(fmt.Sprintf("STRATZ_TOKEN_%d", i))
		if token == "" {
			break
		}
		tokens = append(tokens, token)
	}
	return tokens
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return d, nil
}
