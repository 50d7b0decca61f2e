package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/andrescamacho/fishtrack-go/internal/application/logging"
	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/bootstrap"
	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/config"
	infraLogging "github.com/andrescamacho/fishtrack-go/internal/infrastructure/logging"
)

// resolveVesselIDs resolves the vessel filter
// Priority: --vessels flag > user config defaults > pipeline.vessels
// An empty result means every vessel.
func resolveVesselIDs(cfg *config.Config) ([]int64, error) {
	if len(vesselIDs) > 0 {
		return vesselIDs, nil
	}

	userConfigHandler, err := config.NewUserConfigHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	userCfg, err := userConfigHandler.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if len(userCfg.DefaultVessels) > 0 {
		return userCfg.DefaultVessels, nil
	}

	return cfg.Pipeline.Vessels, nil
}

// openApp loads the configuration, wires the application and returns a
// context carrying a stderr logger. The cleanup func must always be called.
func openApp() (context.Context, *config.Config, *bootstrap.Container, func(), error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger := infraLogging.NewSlogLoggerWriter(os.Stderr, "text", level, false, nil)
	ctx := logging.WithLogger(context.Background(), logger)

	app, err := bootstrap.New(cfg, bootstrap.Options{})
	if err != nil {
		return nil, nil, nil, nil, err
	}

	cleanup := func() {
		if err := app.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}
	return ctx, cfg, app, cleanup, nil
}

// formatOptional renders a nil pointer as "-"
func formatOptional[T any](v *T, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
