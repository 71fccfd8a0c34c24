package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/critique/pkg/storage"
)

// Config is the workspace configuration stored in .critique/config.yaml.
type Config struct {
	Provider            string  `yaml:"provider"`
	Model               string  `yaml:"model"`
	MaxRetries          int     `yaml:"max_retries"`
	RetryDelayMs        int     `yaml:"retry_delay_ms"`
	TimeoutSec          int     `yaml:"timeout_sec"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	SynthesisCap        int     `yaml:"synthesis_cap"`
	TopicTokens         int     `yaml:"topic_tokens"`
	SessionTTLMin       int     `yaml:"session_ttl_min"`
	Addr                string  `yaml:"addr"`
	LogLevel            string  `yaml:"log_level"`
	LogFormat           string  `yaml:"log_format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Provider:            "ollama",
		Model:               "llama3",
		MaxRetries:          2,
		RetryDelayMs:        1000,
		TimeoutSec:          300,
		SimilarityThreshold: 0.5,
		SynthesisCap:        10,
		TopicTokens:         3,
		SessionTTLMin:       60,
		Addr:                ":8080",
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// Load reads the config under root, filling unset keys from Default and
// applying environment overrides. A missing file is not an error.
func Load(root string) (*Config, error) {
	cfg := Default()

	repo := storage.NewFilesystemRepository(root)
	path, err := repo.ResolvePath(storage.ConfigFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var file Config
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
		cfg.merge(&file)
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to the workspace.
func Save(root string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	return storage.NewFilesystemRepository(root).SaveYAML(storage.ConfigFile, cfg)
}

func (c *Config) merge(o *Config) {
	if o.Provider != "" {
		c.Provider = o.Provider
	}
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.MaxRetries > 0 {
		c.MaxRetries = o.MaxRetries
	}
	if o.RetryDelayMs > 0 {
		c.RetryDelayMs = o.RetryDelayMs
	}
	if o.TimeoutSec > 0 {
		c.TimeoutSec = o.TimeoutSec
	}
	if o.SimilarityThreshold > 0 {
		c.SimilarityThreshold = o.SimilarityThreshold
	}
	if o.SynthesisCap > 0 {
		c.SynthesisCap = o.SynthesisCap
	}
	if o.TopicTokens > 0 {
		c.TopicTokens = o.TopicTokens
	}
	if o.SessionTTLMin > 0 {
		c.SessionTTLMin = o.SessionTTLMin
	}
	if o.Addr != "" {
		c.Addr = o.Addr
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		c.LogFormat = o.LogFormat
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("CRITIQUE_AI_PROVIDER")); v != "" {
		c.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("CRITIQUE_AI_MODEL")); v != "" {
		c.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("CRITIQUE_ADDR")); v != "" {
		c.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("CRITIQUE_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in (0, 1], got %v", c.SimilarityThreshold)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMin) * time.Minute
}
