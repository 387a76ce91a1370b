// Package config holds the runtime settings consumed by the server and a
// declarative yaml bootstrap for seeding tenants and credentials.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration, populated from viper (flags, env
// with the GPTSTORE prefix, optional gptstore.yaml).
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Pagination PaginationConfig

	// RateLimits is the limiter rule string, e.g. "key:60/m,write:10/m,ip:600/5m".
	RateLimits string

	// BootstrapFile optionally points at a yaml seed file applied at startup.
	BootstrapFile string

	Dev bool
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	CORSOrigins     []string
	MaxBodySize     int64
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver string // sqlite, pgx, mysql
	DSN    string
}

// PaginationConfig bounds list page sizes.
type PaginationConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// SetDefaults registers the default values on the global viper instance.
// Called once from the CLI before Load.
func SetDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"*"})
	viper.SetDefault("server.max_body_size", 1<<20)
	viper.SetDefault("server.shutdown_timeout", "30s")
	viper.SetDefault("database.driver", "sqlite")
	// A file-backed store by default: documents must survive a restart. The
	// empty DSN (in-memory) is reserved for tests that opt in explicitly.
	viper.SetDefault("database.dsn", "gptstore.db")
	viper.SetDefault("rate_limits", "key:60/m,write:10/m,ip:600/5m")
	viper.SetDefault("pagination.default_page_size", 50)
	viper.SetDefault("pagination.max_page_size", 200)
}

// Load materializes the Config from viper's current state.
func Load() Config {
	return Config{
		Server: ServerConfig{
			Host:            viper.GetString("server.host"),
			Port:            viper.GetInt("server.port"),
			CORSOrigins:     viper.GetStringSlice("server.cors_origins"),
			MaxBodySize:     viper.GetInt64("server.max_body_size"),
			ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			Driver: viper.GetString("database.driver"),
			DSN:    viper.GetString("database.dsn"),
		},
		Pagination: PaginationConfig{
			DefaultPageSize: viper.GetInt("pagination.default_page_size"),
			MaxPageSize:     viper.GetInt("pagination.max_page_size"),
		},
		RateLimits:    viper.GetString("rate_limits"),
		BootstrapFile: viper.GetString("bootstrap_file"),
		Dev:           viper.GetBool("dev"),
	}
}
