package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:8080", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, int64(64*1024), cfg.WS.MaxMessageSize)
	assert.Equal(t, 256, cfg.WS.SendBuffer)
	assert.False(t, cfg.WS.CloseReplaced)
	assert.Equal(t, 10, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window())
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "codecollab", cfg.Mongo.Database)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CODECOLLAB_SERVER_ADDR", ":9090")
	t.Setenv("CODECOLLAB_RATE_LIMIT_REQUESTS", "25")
	t.Setenv("CODECOLLAB_MONGO_DATABASE", "codecollab_test")
	t.Setenv("CODECOLLAB_AUTH_SECRET", "hush")
	t.Setenv("CODECOLLAB_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 25, cfg.RateLimit.Requests)
	assert.Equal(t, "codecollab_test", cfg.Mongo.Database)
	assert.Equal(t, "hush", cfg.Auth.Secret)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestSanitizeRestoresInvalidValues(t *testing.T) {
	cfg := &Config{}
	cfg.RateLimit.Requests = -5
	cfg.WS.SendBuffer = 0
	cfg.Auth.TokenTTLMinutes = -1

	sanitize(cfg)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.RateLimit.Requests)
	assert.Equal(t, 1, cfg.RateLimit.WindowMinutes)
	assert.Equal(t, 256, cfg.WS.SendBuffer)
	assert.Equal(t, int64(64*1024), cfg.WS.MaxMessageSize)
	assert.Equal(t, 60*24, cfg.Auth.TokenTTLMinutes)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
