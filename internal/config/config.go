// ABOUTME: Configuration loading and parsing for the agentwire gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Broker   BrokerConfig   `yaml:"broker"`
	Turns    TurnsConfig    `yaml:"turns"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	// ListenAddr serves both the websocket endpoint and the health check
	ListenAddr string `yaml:"listen_addr"`
	// AllowedOrigins restricts browser websocket connections; empty allows any
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds session store configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// BrokerConfig selects the turn broker. An empty RedisURL means the
// in-process broker, which only works when the runner shares the binary.
type BrokerConfig struct {
	RedisURL string `yaml:"redis_url"`
}

// TurnsConfig holds turn handling timing configuration
type TurnsConfig struct {
	DedupeTTL   time.Duration `yaml:"-"`
	TurnTimeout time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	DedupeTTLRaw   string `yaml:"dedupe_ttl"`
	TurnTimeoutRaw string `yaml:"turn_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{ListenAddr: "0.0.0.0:8080"},
		Database: DatabaseConfig{Path: "./agentwire.db"},
		Turns: TurnsConfig{
			DedupeTTL:   5 * time.Minute,
			TurnTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Turns.DedupeTTLRaw != "" {
		cfg.Turns.DedupeTTL, err = time.ParseDuration(cfg.Turns.DedupeTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing dedupe_ttl %q: %w", cfg.Turns.DedupeTTLRaw, err)
		}
	}

	if cfg.Turns.TurnTimeoutRaw != "" {
		cfg.Turns.TurnTimeout, err = time.ParseDuration(cfg.Turns.TurnTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing turn_timeout %q: %w", cfg.Turns.TurnTimeoutRaw, err)
		}
	}

	return nil
}
