package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  type: sqlite
  path: ":memory:"
`)

	cfg, err := config.LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 100, cfg.Pipeline.UnprocessedBatchSize)
	assert.Equal(t, 1000.0, cfg.Pipeline.PortProximityMeters)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.Interval)
	assert.Equal(t, 5*time.Hour, cfg.Fuel.RunInterval)
	assert.Equal(t, 70.0, cfg.Fuel.MaxKnots)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadConfigReadsFileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
database:
  type: sqlite
  path: ":memory:"
pipeline:
  workers: 8
  interval: 15m
  vessels: [101, 102]
fuel:
  run_interval: 2h
`)
	t.Setenv("FT_PIPELINE_WORKERS", "16")

	cfg, err := config.LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Pipeline.Workers)
	assert.Equal(t, 15*time.Minute, cfg.Pipeline.Interval)
	assert.Equal(t, []int64{101, 102}, cfg.Pipeline.Vessels)
	assert.Equal(t, 2*time.Hour, cfg.Fuel.RunInterval)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
database:
  type: mysql
logging:
  level: loud
`)

	_, err := config.LoadConfig(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "Type")
	assert.Contains(t, err.Error(), "Level")
}

func TestValidateConfigRequiresLogFileForFileOutput(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Type = "sqlite"
	cfg.Logging.Output = "file"
	config.SetDefaults(cfg)

	err := config.ValidateConfig(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "FilePath")
}

func TestLoadConfigReadsEnvironmentForKeysMissingFromFile(t *testing.T) {
	path := writeConfig(t, `
database:
  type: postgres
`)
	t.Setenv("FT_FUEL_MAX_KNOTS", "40")
	t.Setenv("FT_DAEMON_RUN_ON_START", "true")
	t.Setenv("FT_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "postgres://fishtrack@db:5432/fishtrack")

	cfg, err := config.LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 40.0, cfg.Fuel.MaxKnots)
	assert.True(t, cfg.Daemon.RunOnStart)
	assert.Equal(t, "postgres://fishtrack@db:5432/fishtrack", cfg.Database.URL)
}

func TestSetDefaultsSizesPoolFromWorkers(t *testing.T) {
	cfg := &config.Config{}
	cfg.Pipeline.Workers = 8
	cfg.Fuel.Workers = 3

	config.SetDefaults(cfg)

	assert.Equal(t, 13, cfg.Database.Pool.MaxOpen)
	assert.Equal(t, 5, cfg.Database.Pool.MaxIdle)
	assert.Equal(t, 9464, cfg.Metrics.Port)
	require.NoError(t, config.ValidateConfig(cfg))

	small := &config.Config{}
	small.Database.Pool.MaxOpen = 3
	config.SetDefaults(small)
	assert.Equal(t, 3, small.Database.Pool.MaxIdle)
}

func TestValidateConfigRejectsFishtrackRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
		field  string
	}{
		{
			name:   "duplicate vessel ids",
			mutate: func(cfg *config.Config) { cfg.Pipeline.Vessels = []int64{7, 3, 7} },
			field:  "Pipeline.Vessels",
		},
		{
			name:   "non-positive vessel id",
			mutate: func(cfg *config.Config) { cfg.Pipeline.Vessels = []int64{0} },
			field:  "Pipeline.Vessels",
		},
		{
			name:   "prune threshold below steaming speed",
			mutate: func(cfg *config.Config) { cfg.Fuel.MaxKnots = 12 },
			field:  "Fuel.MaxKnots",
		},
		{
			name:   "connection string for another database",
			mutate: func(cfg *config.Config) { cfg.Database.URL = "mysql://db:3306/fishtrack" },
			field:  "Database.URL",
		},
		{
			name: "pool smaller than the trip workers",
			mutate: func(cfg *config.Config) {
				cfg.Pipeline.Workers = 8
				cfg.Database.Pool.MaxOpen = 2
				cfg.Database.Pool.MaxIdle = 2
			},
			field: "Database.Pool.MaxOpen",
		},
		{
			name: "metrics on the health server port",
			mutate: func(cfg *config.Config) {
				cfg.Metrics.Enabled = true
				cfg.Metrics.Port = 50061
			},
			field: "Metrics.Port",
		},
		{
			name:   "metrics path shadowing the health check",
			mutate: func(cfg *config.Config) { cfg.Metrics.Path = "/healthz" },
			field:  "Metrics.Path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Database.Type = "postgres"
			config.SetDefaults(cfg)
			require.NoError(t, config.ValidateConfig(cfg))

			tt.mutate(cfg)
			err := config.ValidateConfig(cfg)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestUserConfigDefaultVessels(t *testing.T) {
	handler, err := config.NewUserConfigHandlerAt(filepath.Join(t.TempDir(), "fishtrack", "config.json"))
	require.NoError(t, err)

	empty, err := handler.Load()
	require.NoError(t, err)
	assert.Empty(t, empty.DefaultVessels)

	require.NoError(t, handler.SetDefaultVessels([]int64{7, 3, 7}))
	loaded, err := handler.Load()
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7}, loaded.DefaultVessels)

	require.Error(t, handler.SetDefaultVessels([]int64{-1}))
	unchanged, err := handler.Load()
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7}, unchanged.DefaultVessels)

	require.NoError(t, handler.ClearDefaultVessels())
	cleared, err := handler.Load()
	require.NoError(t, err)
	assert.Empty(t, cleared.DefaultVessels)
}

func TestUserConfigRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	handler, err := config.NewUserConfigHandlerAt(path)
	require.NoError(t, err)

	_, err = handler.Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
