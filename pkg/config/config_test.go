package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, 5, cfg.RateLimit.MaxAttempts)
	require.Equal(t, time.Hour, cfg.RateLimit.Window)
	require.Equal(t, "redis", cfg.RateLimit.Backend)
	require.Equal(t, DefaultAIReviewerEmail, cfg.Security.AIReviewerEmail)
}

func TestAIReviewerEmail(t *testing.T) {
	var nilCfg *Config
	require.Equal(t, DefaultAIReviewerEmail, nilCfg.AIReviewerEmail())

	cfg := &Config{}
	require.Equal(t, DefaultAIReviewerEmail, cfg.AIReviewerEmail())

	cfg.Security.AIReviewerEmail = "  Bot@Example.COM "
	require.Equal(t, "bot@example.com", cfg.AIReviewerEmail())
}
