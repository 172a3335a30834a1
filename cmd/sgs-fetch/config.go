package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bacendata/sgs-client/pkg/cache"
	"github.com/bacendata/sgs-client/pkg/client"
)

// fileConfig is the optional YAML configuration file. Every field has a
// working default; environment variables override the file.
type fileConfig struct {
	BaseURL        string `yaml:"base_url"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxAttempts    int    `yaml:"max_attempts"`
	MaxConcurrent  int    `yaml:"max_concurrent"`

	Cache struct {
		// Backend selects the cache store: "sqlite" (default), "redis"
		// or "off".
		Backend   string `yaml:"backend"`
		Path      string `yaml:"path"`
		RedisAddr string `yaml:"redis_addr"`
	} `yaml:"cache"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

func defaultFileConfig() fileConfig {
	var cfg fileConfig
	cfg.Cache.Backend = "sqlite"
	cfg.Cache.Path = cache.DefaultPath()
	cfg.Cache.RedisAddr = "localhost:6379"
	cfg.Log.Level = "info"
	cfg.Log.Pretty = true
	return cfg
}

// loadConfig reads the YAML file at path when it exists and applies
// environment overrides. An empty path means defaults plus environment.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.BaseURL = getEnv("SGS_BASE_URL", cfg.BaseURL)
	cfg.UserAgent = getEnv("SGS_USER_AGENT", cfg.UserAgent)
	cfg.Cache.Backend = getEnv("SGS_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.Path = getEnv("SGS_CACHE_PATH", cfg.Cache.Path)
	cfg.Cache.RedisAddr = getEnv("SGS_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Log.Level = getEnv("SGS_LOG_LEVEL", cfg.Log.Level)

	switch cfg.Cache.Backend {
	case "sqlite", "redis", "off":
	default:
		return cfg, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	return cfg, nil
}

// clientConfig maps the file configuration onto the client defaults.
func (c fileConfig) clientConfig() client.Config {
	cfg := client.DefaultConfig()
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	if c.UserAgent != "" {
		cfg.UserAgent = c.UserAgent
	}
	if c.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	if c.MaxAttempts > 0 {
		cfg.MaxAttempts = c.MaxAttempts
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
