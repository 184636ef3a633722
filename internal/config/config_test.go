package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBHost)
	assert.Equal(t, 1536, cfg.EmbedDim)
	assert.Equal(t, "gemini-embedding-001", cfg.EmbedModel)
	assert.Equal(t, 5, cfg.EnrichMaxAttempts)
	assert.Equal(t, 30, cfg.RetryBackoffSeconds)
	assert.Equal(t, 300, cfg.StaleThresholdSeconds)
	assert.Equal(t, 1000, cfg.MaxCap)
	assert.True(t, cfg.EnableAPI)
	assert.True(t, cfg.EnableEmbedWorker)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("EMBED_WORKERS", "8")
	t.Setenv("ENABLE_API", "false")
	t.Setenv("QUERY_TIMEOUT_SECONDS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.EmbedWorkers)
	assert.False(t, cfg.EnableAPI)
	assert.Equal(t, 3, cfg.QueryTimeoutSeconds)
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{DBHost: "db", DBUser: "u", DBName: "n", EmbedDim: 1536}
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.DBHost = ""
	assert.ErrorIs(t, c.Validate(), ErrMissingRequired)

	c = base()
	c.EmbedDim = 0
	assert.ErrorIs(t, c.Validate(), ErrMissingRequired)
}
