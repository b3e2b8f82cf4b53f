package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application. It is read once at
// startup, validated, and passed by explicit injection; nothing reads
// process-wide state at call time.
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Search limits
	Search SearchConfig `mapstructure:"search"`

	// CircuitBreaker configuration for the database search path
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// DatabaseConfig holds storage backend configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // badger, postgres
	URI    string `mapstructure:"uri"`    // badger path (or :memory:), postgres DSN
}

// SearchConfig holds the limits that bound search memory and result sizes.
// All values are validated or clamped at startup, never per call.
type SearchConfig struct {
	// MaxResults caps backend-native search results. Range 1-1000.
	MaxResults int `mapstructure:"max_results"`

	// BatchSize bounds how many query terms a single database round-trip
	// may combine. Range 1-50.
	BatchSize int `mapstructure:"batch_size"`

	// MaxClientEntities caps how many entities a client-side search will
	// load. Range 100-100000. Hitting the cap logs a warning; results may
	// be incomplete but the call succeeds.
	MaxClientEntities int `mapstructure:"max_client_entities"`

	// ChunkSize bounds the per-chunk entity count during client-side
	// scanning. Range 100-10000, and must not exceed MaxClientEntities.
	ChunkSize int `mapstructure:"chunk_size"`

	// FuzzyThreshold is the default similarity cutoff when a call does not
	// supply one. Must be in (0, 1].
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`

	// FallbackEnabled controls whether a failed database fuzzy search
	// degrades to a client-side scan. When false the error propagates.
	FallbackEnabled bool `mapstructure:"fallback_enabled"`

	// MaxPageSize caps PageRequest.PageSize.
	MaxPageSize int `mapstructure:"max_page_size"`
}

// CircuitBreakerConfig holds configuration for circuit breaking around the
// database search path.
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// Load loads configuration from file and environment variables, applies
// defaults, and validates the search limits. An invalid limit combination is
// an error here, never a silently accepted value in a running query path.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	if err := config.Validate(nil); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks every search limit against its allowed range. ChunkSize
// above MaxClientEntities is auto-corrected with a logged warning; other
// out-of-range values are errors. A nil log falls back to slog.Default.
func (c *Config) Validate(log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	s := &c.Search
	if s.MaxResults < 1 || s.MaxResults > 1000 {
		return fmt.Errorf("search.max_results must be in [1, 1000], got %d", s.MaxResults)
	}
	if s.BatchSize < 1 || s.BatchSize > 50 {
		return fmt.Errorf("search.batch_size must be in [1, 50], got %d", s.BatchSize)
	}
	if s.MaxClientEntities < 100 || s.MaxClientEntities > 100000 {
		return fmt.Errorf("search.max_client_entities must be in [100, 100000], got %d", s.MaxClientEntities)
	}
	if s.ChunkSize < 100 || s.ChunkSize > 10000 {
		return fmt.Errorf("search.chunk_size must be in [100, 10000], got %d", s.ChunkSize)
	}
	if s.ChunkSize > s.MaxClientEntities {
		log.Warn("search.chunk_size exceeds search.max_client_entities, clamping",
			"chunk_size", s.ChunkSize, "max_client_entities", s.MaxClientEntities)
		s.ChunkSize = s.MaxClientEntities
	}
	if s.FuzzyThreshold <= 0 || s.FuzzyThreshold > 1 {
		return fmt.Errorf("search.fuzzy_threshold must be in (0, 1], got %v", s.FuzzyThreshold)
	}
	if s.MaxPageSize < 1 || s.MaxPageSize > 1000 {
		return fmt.Errorf("search.max_page_size must be in [1, 1000], got %d", s.MaxPageSize)
	}
	switch c.Database.Driver {
	case "badger", "postgres":
	default:
		return fmt.Errorf("database.driver must be \"badger\" or \"postgres\", got %q", c.Database.Driver)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	// Database defaults
	viper.SetDefault("database.driver", "badger")
	viper.SetDefault("database.uri", "./memkeeper_db")

	// Search limit defaults
	viper.SetDefault("search.max_results", 100)
	viper.SetDefault("search.batch_size", 10)
	viper.SetDefault("search.max_client_entities", 10000)
	viper.SetDefault("search.chunk_size", 1000)
	viper.SetDefault("search.fuzzy_threshold", 0.3)
	viper.SetDefault("search.fallback_enabled", true)
	viper.SetDefault("search.max_page_size", 100)

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", false)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	// Telemetry defaults
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", fmt.Sprintf("%s/.memkeeper/telemetry", home))
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if dbDriver := os.Getenv("DB_DRIVER"); dbDriver != "" {
		config.Database.Driver = dbDriver
	}
	if dbURI := os.Getenv("DB_URI"); dbURI != "" {
		config.Database.URI = dbURI
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		config.Database.Driver = "postgres"
		config.Database.URI = dsn
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
