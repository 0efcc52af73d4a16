package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.pilab.hu/loginbroker/domain"
)

// StoreBackend selects a storage implementation for one of the broker's
// stores.
type StoreBackend string

const (
	BackendMemory  StoreBackend = "memory"
	BackendRedis   StoreBackend = "redis"
	BackendMongoDB StoreBackend = "mongodb"
)

// ServerConfig holds all configuration for the login broker.
type ServerConfig struct {
	HTTPAddr  string `mapstructure:"http_addr"`
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	// RedirectBaseURL is the externally visible base of the login routes,
	// e.g. "https://auth.example.com/login". Callback URLs registered with
	// the providers must match "<base>/<provider>/callback".
	RedirectBaseURL string `mapstructure:"redirect_base_url"`

	// PostLoginURL and LoginFailureURL are where the callback handler sends
	// the browser after a completed or failed attempt.
	PostLoginURL    string `mapstructure:"post_login_url"`
	LoginFailureURL string `mapstructure:"login_failure_url"`

	StateTTL        time.Duration `mapstructure:"state_ttl"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	ExchangeTimeout time.Duration `mapstructure:"exchange_timeout"`
	ExchangeBackoff time.Duration `mapstructure:"exchange_backoff"`

	PendingStore StoreBackend `mapstructure:"pending_store"`
	AccountStore StoreBackend `mapstructure:"account_store"`
	SessionStore StoreBackend `mapstructure:"session_store"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`

	MongoURI    string `mapstructure:"mongo_uri"`
	MongoDBName string `mapstructure:"mongo_db_name"`

	// Providers lists the configured identity providers. Known provider ids
	// only need client credentials here; endpoints, scopes and field
	// mappings are filled from built-in defaults.
	Providers []domain.Provider `mapstructure:"providers"`
}

// LoadConfig reads configuration from file, environment variables and
// defaults. Env vars use the LOGIN_ prefix, e.g. LOGIN_HTTP_ADDR.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("loginbroker")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/loginbroker/")
	v.AddConfigPath("$HOME/.loginbroker")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LOGIN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("http_addr", "0.0.0.0:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("redirect_base_url", "http://localhost:8080/login")
	v.SetDefault("post_login_url", "http://localhost:3000/")
	v.SetDefault("login_failure_url", "http://localhost:3000/login-failed")
	v.SetDefault("state_ttl", "10m")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("exchange_timeout", "10s")
	v.SetDefault("exchange_backoff", "500ms")
	v.SetDefault("pending_store", string(BackendMemory))
	v.SetDefault("account_store", string(BackendMemory))
	v.SetDefault("session_store", string(BackendMemory))
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_prefix", "loginbroker")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db_name", "loginbroker")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults still apply.
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the non-provider parts of the configuration. Provider
// validation happens in the registry, which owns that contract.
func (c *ServerConfig) Validate() error {
	if c.RedirectBaseURL == "" {
		return errors.New("redirect_base_url must be set")
	}
	if c.PostLoginURL == "" || c.LoginFailureURL == "" {
		return errors.New("post_login_url and login_failure_url must be set")
	}
	for _, b := range []struct {
		name  string
		value StoreBackend
		valid []StoreBackend
	}{
		{"pending_store", c.PendingStore, []StoreBackend{BackendMemory, BackendRedis}},
		{"account_store", c.AccountStore, []StoreBackend{BackendMemory, BackendMongoDB}},
		{"session_store", c.SessionStore, []StoreBackend{BackendMemory, BackendRedis}},
	} {
		ok := false
		for _, valid := range b.valid {
			if b.value == valid {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("invalid %s backend %q", b.name, b.value)
		}
	}
	return nil
}
