package config

import "time"

// Supported store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Store  StoreConfig  `mapstructure:"store" validate:"required"`
	Query  QueryConfig  `mapstructure:"query" validate:"required"`
	Seed   SeedConfig   `mapstructure:"seed"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
}

// ShutdownTimeout returns the graceful shutdown window.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// StoreConfig selects and configures the entity store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=memory postgres sqlite"`
	// URL is the database DSN; unused by the memory driver.
	URL string `mapstructure:"url" validate:"required_unless=Driver memory"`
}

// QueryConfig bounds the work a single query may cause.
type QueryConfig struct {
	MaxDepth    int `mapstructure:"max_depth" validate:"required,gt=0,lte=64"`
	MaxFields   int `mapstructure:"max_fields" validate:"required,gt=0"`
	Parallelism int `mapstructure:"parallelism" validate:"required,gt=0,lte=256"`
	// TimeoutMillis is the deadline for a whole executor pass; 0 disables it.
	TimeoutMillis int `mapstructure:"timeout_ms" validate:"gte=0"`
}

// Timeout returns the per-request executor deadline.
func (c QueryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// SeedConfig controls loading of initial authors and books at startup.
type SeedConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path to a YAML seed file; empty means the built-in catalogue.
	Path string `mapstructure:"path" validate:"omitempty,file"`
}
