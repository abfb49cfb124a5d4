package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SKH_PROVIDER", "SKH_MODEL", "SKH_BASE_URL", "API_KEY", "PARAM_PREFIX", "CACHE_TABLE",
		"CACHE_TTL_HOURS", "ALLOWED_ORIGIN", "SKH_ADDR", "MAX_IDEA_LENGTH", "MAX_MESSAGE_LENGTH",
		"MAX_HISTORY_TURNS", "RETRY_COUNT", "RETRY_INITIAL_DELAY"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ProviderGemini, cfg.Provider)
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, 720*time.Hour, cfg.CacheTTL)
	require.Equal(t, 2000, cfg.MaxIdeaLength)
	require.Equal(t, 1000, cfg.MaxMessageLength)
	require.Equal(t, 40, cfg.MaxHistoryTurns)
	require.Equal(t, 2, cfg.RetryCount)
	require.Equal(t, time.Second, cfg.RetryInitialDelay)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SKH_PROVIDER", "OpenAI")
	t.Setenv("SKH_MODEL", "gpt-4o")
	t.Setenv("CACHE_TABLE", "skh-generations")
	t.Setenv("CACHE_TTL_HOURS", "24")
	t.Setenv("RETRY_COUNT", "4")
	t.Setenv("RETRY_INITIAL_DELAY", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ProviderOpenAI, cfg.Provider)
	require.Equal(t, "gpt-4o", cfg.Model)
	require.Equal(t, "skh-generations", cfg.CacheTable)
	require.Equal(t, 24*time.Hour, cfg.CacheTTL)
	require.Equal(t, 4, cfg.RetryCount)
	require.Equal(t, 250*time.Millisecond, cfg.RetryInitialDelay)
}

func TestLoad_ReportsEveryMalformedValue(t *testing.T) {
	t.Setenv("MAX_IDEA_LENGTH", "lots")
	t.Setenv("RETRY_INITIAL_DELAY", "1 second")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "MAX_IDEA_LENGTH")
	require.Contains(t, err.Error(), "RETRY_INITIAL_DELAY")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name      string
		cfg       Config
		wantErr   string
		wantModel string
	}{
		{name: "gemini default model", cfg: Config{Provider: "gemini", APIKey: "k"}, wantModel: DefaultGeminiModel},
		{name: "openai default model", cfg: Config{Provider: " OPENAI ", ParamPrefix: "/skh"}, wantModel: DefaultOpenAIModel},
		{name: "explicit model kept", cfg: Config{Provider: "gemini", Model: "gemini-2.5-pro", APIKey: "k"}, wantModel: "gemini-2.5-pro"},
		{name: "unknown provider", cfg: Config{Provider: "claude", APIKey: "k"}, wantErr: "unknown provider"},
		{name: "no credentials", cfg: Config{Provider: "gemini"}, wantErr: "API_KEY or PARAM_PREFIX"},
		{name: "negative retries", cfg: Config{Provider: "gemini", APIKey: "k", RetryCount: -1}, wantErr: "RETRY_COUNT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			err := cfg.Validate()
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantModel, cfg.Model)
		})
	}
}
