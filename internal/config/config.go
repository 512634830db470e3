// Package config loads the cofound service configuration from YAML with
// environment-variable overrides. A missing config file yields defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all cofound configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	LLM      LLMConfig      `yaml:"llm"`
	Matching MatchingConfig `yaml:"matching"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ShutdownTimeoutDuration parses the shutdown timeout, falling back to 10s.
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig selects the authentication strategy.
// Mode "session" resolves bearer tokens against the sessions table.
// Mode "harness" trusts a caller-supplied subject header and auto-provisions
// profiles; it must never be enabled when serving real users.
type AuthConfig struct {
	Mode          string `yaml:"mode"`
	SubjectHeader string `yaml:"subject_header"`
}

// LLMConfig configures the external text-generation service.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, off
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
}

// TimeoutDuration parses the LLM call timeout, falling back to 60s.
func (l LLMConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(l.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// MatchingConfig tunes the suggestion pipeline bounds.
type MatchingConfig struct {
	DefaultLimit int `yaml:"default_limit"` // Results returned when the caller gives no limit
	MaxLimit     int `yaml:"max_limit"`     // Hard cap on returned results
	PreRankCap   int `yaml:"pre_rank_cap"`  // Candidates forwarded to the generation service
	MinScore     int `yaml:"min_score"`     // Results below this score are discarded
}

// LoggingConfig configures the categorized debug logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Dir        string          `yaml:"dir"`
	Categories map[string]bool `yaml:"categories"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8090,
			ShutdownTimeout: "10s",
		},
		Database: DatabaseConfig{
			Path: "data/cofound.db",
		},
		Auth: AuthConfig{
			Mode:          "session",
			SubjectHeader: "X-Auth-Subject",
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			Timeout:  "60s",
		},
		Matching: MatchingConfig{
			DefaultLimit: 10,
			MaxLimit:     20,
			PreRankCap:   20,
			MinScore:     50,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "data/logs",
		},
	}
}

// Load loads configuration from a YAML file. A missing file returns the
// defaults; environment variables override both.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("COFOUND_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("COFOUND_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("COFOUND_AUTH_MODE"); v != "" {
		c.Auth.Mode = v
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("COFOUND_LLM_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if v := os.Getenv("COFOUND_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("COFOUND_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

func (c *Config) validate() error {
	switch c.Auth.Mode {
	case "session", "harness":
	default:
		return fmt.Errorf("auth.mode must be session or harness, got %q", c.Auth.Mode)
	}
	if c.Matching.MaxLimit <= 0 {
		return fmt.Errorf("matching.max_limit must be positive")
	}
	if c.Matching.DefaultLimit <= 0 || c.Matching.DefaultLimit > c.Matching.MaxLimit {
		return fmt.Errorf("matching.default_limit must be in [1, max_limit]")
	}
	if c.Matching.PreRankCap <= 0 {
		return fmt.Errorf("matching.pre_rank_cap must be positive")
	}
	return nil
}
