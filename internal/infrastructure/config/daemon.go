package config

import "time"

// DaemonConfig holds daemon service configuration
type DaemonConfig struct {
	// gRPC health server address (host:port)
	HealthAddress string `mapstructure:"health_address" validate:"required"`

	// PID file location
	PIDFile string `mapstructure:"pid_file"`

	// Run a trip pass immediately on startup instead of waiting one interval
	RunOnStart bool `mapstructure:"run_on_start"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`
}
