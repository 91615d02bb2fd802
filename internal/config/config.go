// Package config loads service configuration from defaults, an optional
// YAML file, and WRAPPED_-prefixed environment variables, in that order
// of precedence (env wins).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	XAI     XAIConfig     `koanf:"xai"`
	Storage StorageConfig `koanf:"storage"`
	Report  ReportConfig  `koanf:"report"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
	// Timeout bounds one full pipeline run, in seconds. The remote
	// dependency has unbounded latency; expiry surfaces as a terminal
	// error event.
	Timeout int `koanf:"timeout"`
}

type XAIConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

type StorageConfig struct {
	Path string `koanf:"path"`
}

type ReportConfig struct {
	Schema string `koanf:"schema"`
}

// RunTimeout returns the per-run deadline.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Server.Timeout) * time.Second
}

// ResolveAPIKey returns the xAI credential, falling back to the bare
// XAI_API_KEY variable. Read at request time: its absence is a
// request-time error, not a startup error.
func (c *Config) ResolveAPIKey() string {
	if c.XAI.APIKey != "" {
		return c.XAI.APIKey
	}
	return os.Getenv("XAI_API_KEY")
}

// Load reads configuration. filePath may be empty or point at a YAML
// file; a missing file is not an error so the same binary runs with
// env-only config.
func Load(filePath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"server.port":    8080,
		"server.timeout": 300,
		"xai.base_url":   "https://api.x.ai/v1",
		"xai.model":      "grok-4-1-fast",
		"storage.path":   "./data/wrapped.db",
		"report.schema":  "personality",
	}
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if filePath != "" {
		if _, err := os.Stat(filePath); err == nil {
			if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", filePath, err)
			}
		}
	}

	// WRAPPED_XAI__API_KEY -> xai.api_key
	if err := k.Load(env.Provider("WRAPPED_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "WRAPPED_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
