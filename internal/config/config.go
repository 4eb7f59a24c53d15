// Package config loads and sanitizes the runtime configuration for the
// CodeCollab backend from environment variables and optional config files.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RateLimitConfig defines the parameters for per-user sliding-window rate
// limiting of AI generation requests.
type RateLimitConfig struct {
	Requests      int           `mapstructure:"requests"`
	WindowMinutes int           `mapstructure:"window_minutes"`
	ShutdownGrace time.Duration `mapstructure:"-"`
}

// Window returns the sliding-window length as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WSConfig holds WebSocket connection settings.
type WSConfig struct {
	MaxMessageSize int64 `mapstructure:"max_message_size"`
	SendBuffer     int   `mapstructure:"send_buffer"`
	// CloseReplaced controls whether registering a new connection for a user
	// that already has one force-closes the displaced connection. The default
	// preserves the original silent-replace behavior.
	CloseReplaced bool `mapstructure:"close_replaced"`
}

// MongoConfig holds the persistence settings.
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// OpenAIConfig holds the generation engine settings.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// AuthConfig holds token issuance settings.
type AuthConfig struct {
	Secret          string `mapstructure:"secret"`
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes"`
}

// TokenTTL returns the access token lifetime as a duration.
func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// Config holds the full server configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	WS        WSConfig        `mapstructure:"ws"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Auth      AuthConfig      `mapstructure:"auth"`
	LogLevel  string          `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8080", "http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("ws.max_message_size", 64*1024)
	v.SetDefault("ws.send_buffer", 256)
	v.SetDefault("ws.close_replaced", false)
	v.SetDefault("rate_limit.requests", 10)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "codecollab")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl_minutes", 60*24)
	v.SetDefault("log_level", "info")
}

// Load reads configuration from the environment (CODECOLLAB_* variables) and,
// when present, a config file at the given path. Invalid values fall back to
// their defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CODECOLLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	sanitize(&cfg)
	return &cfg, nil
}

func sanitize(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.WS.MaxMessageSize <= 0 {
		cfg.WS.MaxMessageSize = 64 * 1024
	}
	if cfg.WS.SendBuffer <= 0 {
		cfg.WS.SendBuffer = 256
	}
	if cfg.RateLimit.Requests <= 0 {
		cfg.RateLimit.Requests = 10
	}
	if cfg.RateLimit.WindowMinutes <= 0 {
		cfg.RateLimit.WindowMinutes = 1
	}
	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = 60 * 24
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
