package config

// MetricsConfig controls the daemon's HTTP listener. It exposes the pipeline
// counters on Path and /healthz, which turns unhealthy together with the job
// scheduler.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	Host string `mapstructure:"host" validate:"omitempty,hostname|ip"`
	Port int    `mapstructure:"port" validate:"omitempty,min=1024,max=65535"`

	// Path is where Prometheus scrapes, /metrics unless set
	Path string `mapstructure:"path" validate:"omitempty,startswith=/,ne=/healthz"`
}
