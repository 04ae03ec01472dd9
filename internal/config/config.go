// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// minAPIKeyLength is the shortest string accepted as an OpenAI key.
const minAPIKeyLength = 20

// Config is read once at startup and never mutated afterwards.
type Config struct {
	OpenAIAPIKey  string        `mapstructure:"openai_api_key"`
	OpenAIModel   string        `mapstructure:"openai_model"`
	OpenAIBaseURL string        `mapstructure:"openai_base_url"`
	OpenAITimeout time.Duration `mapstructure:"openai_timeout"`

	Port       int    `mapstructure:"port"`
	StaticDir  string `mapstructure:"static_dir"`
	LogLevel   string `mapstructure:"log_level"`
	TrustProxy bool   `mapstructure:"trust_proxy"`

	RateLimitMax           int           `mapstructure:"rate_limit_max"`
	RateLimitWindow        time.Duration `mapstructure:"rate_limit_window"`
	RateLimitSweepInterval time.Duration `mapstructure:"rate_limit_sweep_interval"`

	ClickHouseDSN  string `mapstructure:"clickhouse_dsn"`
	PostgresDSN    string `mapstructure:"postgres_dsn"`
	GRPCHealthPort int    `mapstructure:"grpc_health_port"` // 0 disables
}

// APIKeyConfigured reports whether the key is present and plausibly real.
func (c Config) APIKeyConfigured() bool {
	return len(strings.TrimSpace(c.OpenAIAPIKey)) >= minAPIKeyLength
}

// ListenAddr is the HTTP listen address.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads configuration. Environment variables take precedence over
// values in the file at path; a missing file is not an error.
// An empty path means ".env" in the working directory.
func Load(path string) (Config, error) {
	if path == "" {
		path = ".env"
	}

	v := viper.New()
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("openai_timeout", "60s")
	v.SetDefault("port", 3000)
	v.SetDefault("static_dir", "public")
	v.SetDefault("log_level", "info")
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_limit_max", 100)
	v.SetDefault("rate_limit_window", "15m")
	v.SetDefault("rate_limit_sweep_interval", "5m")
	v.SetDefault("clickhouse_dsn", "")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("grpc_health_port", 0)
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		// Other extensions (.yaml, .toml, ...) are detected by viper.
		if ext := filepath.Ext(path); ext == "" || ext == ".env" {
			v.SetConfigType("env")
		}
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("stat config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("config: port %d out of range", c.Port)
	case c.RateLimitMax <= 0:
		return fmt.Errorf("config: rate_limit_max must be positive")
	case c.RateLimitWindow <= 0:
		return fmt.Errorf("config: rate_limit_window must be positive")
	case c.OpenAITimeout <= 0:
		return fmt.Errorf("config: openai_timeout must be positive")
	case c.OpenAIModel == "":
		return fmt.Errorf("config: openai_model is empty")
	}
	return nil
}
