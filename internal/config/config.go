// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultGeminiModel = "gemini-3-flash-preview"
	DefaultOpenAIModel = "gpt-4o-mini"
)

type Config struct {
	Provider string
	Model    string
	// BaseURL overrides the provider endpoint, mostly for proxies and tests.
	BaseURL string

	APIKey      string
	ParamPrefix string

	CacheTable string
	CacheTTL   time.Duration

	AllowedOrigin string
	Addr          string

	MaxIdeaLength    int
	MaxMessageLength int
	MaxHistoryTurns  int

	RetryCount        int
	RetryInitialDelay time.Duration
}

// Load builds a Config from environment variables, applying defaults for
// anything unset.
func Load() (Config, error) {
	cfg := Config{
		Provider:    strings.ToLower(getEnv("SKH_PROVIDER", ProviderGemini)),
		Model:       os.Getenv("SKH_MODEL"),
		BaseURL:     os.Getenv("SKH_BASE_URL"),
		APIKey:      os.Getenv("API_KEY"),
		ParamPrefix: os.Getenv("PARAM_PREFIX"),
		CacheTable:  os.Getenv("CACHE_TABLE"),

		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		Addr:          getEnv("SKH_ADDR", ":8080"),
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	ttlHours, err := envInt("CACHE_TTL_HOURS", 720)
	collect(err)
	cfg.CacheTTL = time.Duration(ttlHours) * time.Hour

	cfg.MaxIdeaLength, err = envInt("MAX_IDEA_LENGTH", 2000)
	collect(err)
	cfg.MaxMessageLength, err = envInt("MAX_MESSAGE_LENGTH", 1000)
	collect(err)
	cfg.MaxHistoryTurns, err = envInt("MAX_HISTORY_TURNS", 40)
	collect(err)
	cfg.RetryCount, err = envInt("RETRY_COUNT", 2)
	collect(err)
	cfg.RetryInitialDelay, err = envDuration("RETRY_INITIAL_DELAY", time.Second)
	collect(err)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings needed to build a completion client and fills
// in the provider's default model.
func (c *Config) Validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderGemini:
		if c.Model == "" {
			c.Model = DefaultGeminiModel
		}
	case ProviderOpenAI:
		if c.Model == "" {
			c.Model = DefaultOpenAIModel
		}
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}
	if strings.TrimSpace(c.APIKey) == "" && strings.TrimSpace(c.ParamPrefix) == "" {
		return errors.New("config: API_KEY or PARAM_PREFIX must be set")
	}
	if c.RetryCount < 0 {
		return errors.New("config: RETRY_COUNT must not be negative")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
