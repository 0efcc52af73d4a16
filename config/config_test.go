package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.pilab.hu/loginbroker/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Minute, cfg.StateTTL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.ExchangeTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.ExchangeBackoff)
	assert.Equal(t, config.BackendMemory, cfg.PendingStore)
	assert.Equal(t, config.BackendMemory, cfg.AccountStore)
	assert.Equal(t, config.BackendMemory, cfg.SessionStore)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LOGIN_HTTP_ADDR", "127.0.0.1:9090")
	t.Setenv("LOGIN_STATE_TTL", "5m")
	t.Setenv("LOGIN_PENDING_STORE", "redis")
	t.Setenv("LOGIN_REDIS_ADDR", "redis.internal:6379")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Minute, cfg.StateTTL)
	assert.Equal(t, config.BackendRedis, cfg.PendingStore)
	assert.Equal(t, "redis.internal:6379", cfg.RedisAddr)
}

func TestLoadConfig_InvalidBackend(t *testing.T) {
	t.Setenv("LOGIN_SESSION_STORE", "postgres")

	_, err := config.LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_store")
}

func TestServerConfig_Validate(t *testing.T) {
	valid := func() *config.ServerConfig {
		return &config.ServerConfig{
			RedirectBaseURL: "http://localhost:8080/login",
			PostLoginURL:    "http://localhost:3000/",
			LoginFailureURL: "http://localhost:3000/login-failed",
			PendingStore:    config.BackendMemory,
			AccountStore:    config.BackendMemory,
			SessionStore:    config.BackendMemory,
		}
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.RedirectBaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.LoginFailureURL = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.AccountStore = config.BackendRedis
	assert.Error(t, cfg.Validate())
}
