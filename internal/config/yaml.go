package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level chatwire configuration file.
type YAMLConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Webhooks  WebhookConfig   `yaml:"webhooks"`
	Bulk      BulkConfig      `yaml:"bulk"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host"`
	Port            int        `yaml:"port"`
	ShutdownTimeout string     `yaml:"shutdown_timeout"`
	CORS            CORSConfig `yaml:"cors"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// AuthConfig controls authentication settings. The master key is the
// operator credential with unconditional full access; it is never stored in
// the key store.
type AuthConfig struct {
	MasterKey    string `yaml:"master_key"`
	APIKeyHeader string `yaml:"api_key_header"`
}

// WebhookConfig controls outbound webhook delivery.
type WebhookConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// BulkConfig controls bulk message dispatch throttling.
type BulkConfig struct {
	DefaultDelayMs int `yaml:"default_delay_ms"`
	MaxRecipients  int `yaml:"max_recipients"`
}

// RateLimitConfig controls inbound request throttling on the message surface.
type RateLimitConfig struct {
	PerMinute       int `yaml:"per_minute"`
	PerKeyPerMinute int `yaml:"per_key_per_minute"`
}

// LoggingConfig controls structured logging output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultYAML returns a YAMLConfig populated with production defaults.
func DefaultYAML() YAMLConfig {
	return YAMLConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: "30s",
			CORS:            CORSConfig{Origins: []string{"*"}},
		},
		Auth: AuthConfig{
			APIKeyHeader: "X-API-Key",
		},
		Webhooks: WebhookConfig{TimeoutSeconds: 10},
		Bulk: BulkConfig{
			DefaultDelayMs: 2000,
			MaxRecipients:  100,
		},
		RateLimit: RateLimitConfig{
			PerMinute:       300,
			PerKeyPerMinute: 60,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadYAML reads and parses a chatwire configuration file.
func LoadYAML(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultYAML()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}

// WriteYAML serializes cfg to path, used by `chatwire config init`.
func WriteYAML(path string, cfg YAMLConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
