// Package config loads StudyFlow configuration from YAML with
// environment-variable overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all StudyFlow configuration.
type Config struct {
	Name string `yaml:"name"`

	Backend BackendConfig `yaml:"backend"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig configures the generative backend client.
type BackendConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "studyflow",
		Backend: BackendConfig{
			Model:   "gemini-2.0-flash",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Timeout: "2m",
		},
		Server: ServerConfig{
			Listen: ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a YAML file layered over the defaults,
// then applies environment overrides. A missing file is not an error;
// defaults plus environment are enough to run.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Backend.APIKey = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" && c.Backend.APIKey == "" {
		c.Backend.APIKey = key
	}
	if model := os.Getenv("STUDYFLOW_MODEL"); model != "" {
		c.Backend.Model = model
	}
	if listen := os.Getenv("STUDYFLOW_LISTEN"); listen != "" {
		c.Server.Listen = listen
	}
	if level := os.Getenv("STUDYFLOW_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// RequestTimeout parses the backend timeout, falling back to two minutes
// on a bad or empty value.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Backend.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// Validate checks that the configuration can actually serve requests.
func (c *Config) Validate() error {
	if c.Backend.APIKey == "" {
		return fmt.Errorf("backend API key is not set (config backend.api_key or GEMINI_API_KEY)")
	}
	if c.Backend.Model == "" {
		return fmt.Errorf("backend model is not set")
	}
	return nil
}
