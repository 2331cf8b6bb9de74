package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// logLevels are the names logging.ParseLevel understands.
var logLevels = []string{"debug", "info", "warn", "warning", "error"}

// Config holds all configuration for the application
type Config struct {
	Log            LogConfig            `mapstructure:"log"`
	Storage        StorageConfig        `mapstructure:"storage"`
	Importer       ImporterConfig       `mapstructure:"importer"`
	Server         ServerConfig         `mapstructure:"server"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// StorageConfig selects the resolver backend
type StorageConfig struct {
	Driver string      `mapstructure:"driver"` // sqlite, neo4j
	Path   string      `mapstructure:"path"`   // sqlite catalog file
	Neo4j  Neo4jConfig `mapstructure:"neo4j"`
}

// Neo4jConfig holds Neo4j connection settings
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// ImporterConfig holds the fact property names and the optional
// preprocessing rules file
type ImporterConfig struct {
	SourceName string `mapstructure:"source_name"`
	RoleName   string `mapstructure:"role_name"`
	TargetName string `mapstructure:"target_name"`
	RulesFile  string `mapstructure:"rules_file"`
}

// ServerConfig holds MCP server configuration
type ServerConfig struct {
	Transport   string `mapstructure:"transport"` // stdio, http
	Port        string `mapstructure:"port"`
	BearerToken string `mapstructure:"bearer_token"`
}

// CircuitBreakerConfig holds configuration for circuit breaking around the
// resolvers
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// Load decodes configuration from v after applying defaults.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "./data/catalog.db")
	v.SetDefault("storage.neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("storage.neo4j.username", "neo4j")
	v.SetDefault("storage.neo4j.password", "")
	v.SetDefault("storage.neo4j.database", "neo4j")

	v.SetDefault("importer.source_name", "source")
	v.SetDefault("importer.role_name", "role")
	v.SetDefault("importer.target_name", "target")
	v.SetDefault("importer.rules_file", "")

	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.port", "8081")
	v.SetDefault("server.bearer_token", "")

	v.SetDefault("circuit_breaker.enabled", false)
	v.SetDefault("circuit_breaker.max_requests", 1)
	v.SetDefault("circuit_breaker.interval", 60)
	v.SetDefault("circuit_breaker.timeout", 30)
	v.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)
}

// Validate rejects unknown enumerations and out-of-range values.
func (c *Config) Validate() error {
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	if !slices.Contains([]string{"text", "json"}, c.Log.Format) {
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage.path is required for sqlite", ErrInvalidConfig)
		}
	case "neo4j":
		if c.Storage.Neo4j.URI == "" {
			return fmt.Errorf("%w: storage.neo4j.uri is required for neo4j", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: storage.driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	if !slices.Contains([]string{"stdio", "http"}, c.Server.Transport) {
		return fmt.Errorf("%w: server.transport %q", ErrInvalidConfig, c.Server.Transport)
	}
	if c.CircuitBreaker.Enabled {
		if r := c.CircuitBreaker.ReadyToTripRatio; r <= 0 || r > 1 {
			return fmt.Errorf("%w: circuit_breaker.ready_to_trip_ratio %v", ErrInvalidConfig, r)
		}
	}
	return nil
}
