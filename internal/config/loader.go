package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("wechat.token", "WECHAT_TOKEN")
	viper.BindEnv("wechat.app_id", "WECHAT_APP_ID")
	viper.BindEnv("wechat.app_secret", "WECHAT_APP_SECRET")
	viper.BindEnv("wechat.encoding_aes_key", "WECHAT_ENCODING_AES_KEY")
	viper.BindEnv("wechat.api_base_url", "WECHAT_API_BASE_URL")

	viper.BindEnv("bridge.base_url", "BRIDGE_BASE_URL")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("redis.binding_ttl_seconds", "REDIS_BINDING_TTL_SECONDS")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")
}

func setDefaults() {
	viper.SetDefault("server.read_timeout_seconds", 15)
	viper.SetDefault("server.write_timeout_seconds", 15)
	viper.SetDefault("wechat.api_base_url", "https://api.weixin.qq.com")
	viper.SetDefault("forward.timeout_seconds", 10)
	viper.SetDefault("push.timeout_seconds", 10)
	viper.SetDefault("push.breaker.max_requests", 3)
	viper.SetDefault("push.breaker.interval_seconds", 60)
	viper.SetDefault("push.breaker.timeout_seconds", 60)
	viper.SetDefault("rate_limit.rps", 10.0)
	viper.SetDefault("rate_limit.burst", 20)
	viper.SetDefault("rate_limit.cleanup_interval", 300)
	viper.SetDefault("rate_limit.max_age", 600)
	viper.SetDefault("logging.level", "info")
}
