package config

import "time"

// poolHeadroom covers the connections used outside the workers: run
// bookkeeping, timers and the CLI
const poolHeadroom = 2

// SetDefaults fills every unset field. Worker counts are settled first since
// the connection pool is sized from them.
func SetDefaults(cfg *Config) {
	// Pipeline defaults
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.UnprocessedBatchSize == 0 {
		cfg.Pipeline.UnprocessedBatchSize = 100
	}
	if cfg.Pipeline.PortProximityMeters == 0 {
		cfg.Pipeline.PortProximityMeters = 1000
	}
	if cfg.Pipeline.Interval == 0 {
		cfg.Pipeline.Interval = 10 * time.Minute
	}

	// Fuel defaults
	if cfg.Fuel.RunInterval == 0 {
		cfg.Fuel.RunInterval = 5 * time.Hour
	}
	if cfg.Fuel.Workers == 0 {
		cfg.Fuel.Workers = 4
	}
	if cfg.Fuel.MaxKnots == 0 {
		cfg.Fuel.MaxKnots = 70
	}

	// Database defaults
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "fishtrack"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "fishtrack"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Pool.MaxOpen == 0 {
		cfg.Database.Pool.MaxOpen = cfg.Pipeline.Workers + cfg.Fuel.Workers + poolHeadroom
	}
	if cfg.Database.Pool.MaxIdle == 0 {
		cfg.Database.Pool.MaxIdle = min(5, cfg.Database.Pool.MaxOpen)
	}
	if cfg.Database.Pool.MaxLifetime == 0 {
		cfg.Database.Pool.MaxLifetime = 5 * time.Minute
	}

	// Daemon defaults
	if cfg.Daemon.HealthAddress == "" {
		cfg.Daemon.HealthAddress = "localhost:50061"
	}
	if cfg.Daemon.PIDFile == "" {
		cfg.Daemon.PIDFile = "/tmp/fishtrack-daemon.pid"
	}
	if cfg.Daemon.ShutdownTimeout == 0 {
		cfg.Daemon.ShutdownTimeout = 30 * time.Second
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Metrics defaults
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9464
	}
	if cfg.Metrics.Host == "" {
		cfg.Metrics.Host = "localhost"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
