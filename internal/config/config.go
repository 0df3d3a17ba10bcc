package config

import (
	"time"
)

type Config struct {
	Server    ServerConfig
	WeChat    WeChatConfig
	Bridge    BridgeConfig
	Redis     RedisConfig
	Forward   ForwardConfig
	Push      PushConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

// WeChatConfig carries the official-account credentials. EncodingAESKey
// is optional: when empty the gateway only accepts plaintext messages.
type WeChatConfig struct {
	Token          string `mapstructure:"token"`
	AppID          string `mapstructure:"app_id"`
	AppSecret      string `mapstructure:"app_secret"`
	EncodingAESKey string `mapstructure:"encoding_aes_key"`
	APIBaseURL     string `mapstructure:"api_base_url"`
}

// BridgeConfig describes how the gateway advertises itself to remote
// task endpoints. BaseURL is the public URL callbacks are addressed to.
type BridgeConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type RedisConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Password          string `mapstructure:"password"`
	DB                int    `mapstructure:"db"`
	BindingTTLSeconds int    `mapstructure:"binding_ttl_seconds"`
}

type ForwardConfig struct {
	TimeoutSeconds time.Duration `mapstructure:"timeout_seconds"`
}

type PushConfig struct {
	TimeoutSeconds time.Duration `mapstructure:"timeout_seconds"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxRequests     uint32        `mapstructure:"max_requests"`
	IntervalSeconds time.Duration `mapstructure:"interval_seconds"`
	TimeoutSeconds  time.Duration `mapstructure:"timeout_seconds"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
