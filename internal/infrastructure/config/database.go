package config

import "time"

// DatabaseConfig locates the store holding vessels, ERS messages, positions,
// trips and day fuel estimates. Deployments run on postgres next to the
// ingestion services; sqlite serves local runs and tests.
type DatabaseConfig struct {
	Type string `mapstructure:"type" validate:"required,oneof=postgres sqlite"`

	// URL is a full postgres connection string and wins over the discrete
	// fields. DATABASE_URL is read as well as FT_DATABASE_URL.
	URL string `mapstructure:"url" validate:"omitempty,postgres_url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode" validate:"omitempty,oneof=disable require verify-ca verify-full"`

	// Path is the sqlite file; empty means an in-memory database
	Path string `mapstructure:"path"`

	// SkipMigrations leaves the schema alone on startup, for databases whose
	// tables are owned by the ingestion side
	SkipMigrations bool `mapstructure:"skip_migrations"`

	// SlowQueryThreshold logs queries slower than this; zero keeps gorm silent
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`

	Pool PoolConfig `mapstructure:"pool"`
}

// PoolConfig bounds the postgres connection pool. Every trip worker and every
// fuel worker holds a connection while it processes a vessel.
type PoolConfig struct {
	// MaxOpen defaults to the trip and fuel workers plus headroom for the
	// scheduler's run bookkeeping
	MaxOpen     int           `mapstructure:"max_open" validate:"min=1"`
	MaxIdle     int           `mapstructure:"max_idle" validate:"min=1,ltefield=MaxOpen"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}
