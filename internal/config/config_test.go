package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithDefaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("MONGO_DB_NAME", "vigil")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:6379", cfg.RedisHost)
	assert.Equal(t, 24*time.Hour, cfg.StreamRetentionDuration)
	assert.Equal(t, 5*time.Minute, cfg.CopyPasteWindow)
	assert.Equal(t, "8080", cfg.ServerPort)

	defaults := cfg.ValidationDefaults()
	assert.False(t, defaults.StrictMode)
	assert.True(t, defaults.BlockDirectSolutions)
	assert.Equal(t, 0.3, defaults.ContextSimilarityThreshold)
	assert.Equal(t, 0.7, defaults.OffTopicThreshold)
	assert.Equal(t, 30.0, defaults.AllowedDeviationPercentage)
	assert.True(t, defaults.EnableSemanticAnalysis)
}

func TestValidate(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("MONGO_DB_NAME", "vigil")
	t.Setenv("JWT_SECRET", "secret")

	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "MissingMongoURI", mutate: func(c *Config) { c.MongoURI = "" }},
		{name: "MissingJWTSecret", mutate: func(c *Config) { c.JWTSecret = "" }},
		{name: "SimilarityAboveOne", mutate: func(c *Config) { c.ContextSimilarityThreshold = 1.5 }},
		{name: "DeviationAboveHundred", mutate: func(c *Config) { c.AllowedDeviationPercentage = 120 }},
		{name: "ZeroJobs", mutate: func(c *Config) { c.MaxConcurrentJobs = 0 }},
		{name: "ZeroWindow", mutate: func(c *Config) { c.CopyPasteWindow = 0 }},
		{name: "ZeroRingCapacity", mutate: func(c *Config) { c.SecurityEventCapacity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
