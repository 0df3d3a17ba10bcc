package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateWeChat(cfg.WeChat); err != nil {
		errors = append(errors, err)
	}

	if err := validateBridge(cfg.Bridge); err != nil {
		errors = append(errors, err)
	}

	if err := validateRedis(cfg.Redis); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateWeChat(cfg WeChatConfig) error {
	if cfg.Token == "" {
		return &ValidationError{
			Field:   "wechat.token",
			Message: "token is required",
		}
	}

	if cfg.AppID == "" {
		return &ValidationError{
			Field:   "wechat.app_id",
			Message: "app_id is required",
		}
	}

	// EncodingAESKey is optional, but when present it must be the
	// 43-character form that decodes to a 32-byte AES key.
	if cfg.EncodingAESKey != "" {
		if len(cfg.EncodingAESKey) != 43 {
			return &ValidationError{
				Field:   "wechat.encoding_aes_key",
				Message: fmt.Sprintf("must be 43 characters, got %d", len(cfg.EncodingAESKey)),
			}
		}
		raw, err := base64.StdEncoding.DecodeString(cfg.EncodingAESKey + "=")
		if err != nil || len(raw) != 32 {
			return &ValidationError{
				Field:   "wechat.encoding_aes_key",
				Message: "must base64-decode to a 32-byte key",
			}
		}
	}

	return nil
}

func validateBridge(cfg BridgeConfig) error {
	if cfg.BaseURL == "" {
		return &ValidationError{
			Field:   "bridge.base_url",
			Message: "base_url is required",
		}
	}

	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{
			Field:   "bridge.base_url",
			Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.BaseURL),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "redis.host",
			Message: "host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}
