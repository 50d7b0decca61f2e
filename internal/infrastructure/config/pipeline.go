package config

import "time"

// PipelineConfig holds trip pipeline configuration
type PipelineConfig struct {
	// Number of worker goroutines per pass
	Workers int `mapstructure:"workers" validate:"min=1,max=256"`

	// Maximum trips fetched per unprocessed-step query
	UnprocessedBatchSize int `mapstructure:"unprocessed_batch_size" validate:"min=1"`

	// Distance in meters under which a position counts as in port
	PortProximityMeters float64 `mapstructure:"port_proximity_meters" validate:"gt=0"`

	// Interval between daemon passes
	Interval time.Duration `mapstructure:"interval" validate:"required"`

	// Restrict passes to these vessel ids (empty means every vessel)
	Vessels []int64 `mapstructure:"vessels" validate:"omitempty,vessel_ids"`
}

// FuelConfig holds day-bucketed fuel estimation configuration
type FuelConfig struct {
	// Minimum time between two completed runs
	RunInterval time.Duration `mapstructure:"run_interval" validate:"required"`

	// Number of vessels estimated concurrently
	Workers int `mapstructure:"workers" validate:"min=1,max=256"`

	// Segments faster than this (knots) are pruned as outliers
	MaxKnots float64 `mapstructure:"max_knots" validate:"prune_knots"`
}
