package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage fishtrack configuration settings.

Configuration is loaded from multiple sources with priority:
1. Environment variables (FT_* prefix)
2. Config file (config.yaml)
3. Default values

User preferences (default vessels) are stored in ~/.fishtrack/config.json

Examples:
  fishtrack config show
  fishtrack config set-vessels 101 102
  fishtrack config clear-vessels`,
	}

	// Add subcommands
	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetVesselsCommand())
	cmd.AddCommand(newConfigClearVesselsCommand())

	return cmd
}

// newConfigShowCommand creates the config show subcommand
func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load system config
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				fmt.Printf("Warning: Failed to load config: %v\n", err)
				fmt.Println("Using default configuration.")
				cfg = config.LoadConfigOrDefault(configPath)
			}

			// Load user config
			userConfigHandler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}

			userCfg, err := userConfigHandler.Load()
			if err != nil {
				fmt.Printf("Warning: Failed to load user config: %v\n\n", err)
				userCfg = &config.UserConfig{}
			}

			fmt.Println("fishtrack Configuration")
			fmt.Println("=======================")

			fmt.Println("User Preferences:")
			fmt.Printf("  Config file:        %s\n", userConfigHandler.GetConfigPath())
			fmt.Printf("  Default vessels:    %s\n", formatVessels(userCfg.DefaultVessels))

			fmt.Println("\nDatabase:")
			fmt.Printf("  Type:               %s\n", cfg.Database.Type)
			switch {
			case cfg.Database.URL != "":
				fmt.Printf("  URL:                %s\n", maskPassword(cfg.Database.URL))
			case cfg.Database.Type == "sqlite":
				fmt.Printf("  Path:               %s\n", cfg.Database.Path)
			default:
				fmt.Printf("  Host:               %s\n", cfg.Database.Host)
				fmt.Printf("  Port:               %d\n", cfg.Database.Port)
				fmt.Printf("  Database:           %s\n", cfg.Database.Name)
				fmt.Printf("  User:               %s\n", cfg.Database.User)
			}
			if cfg.Database.Type == "postgres" {
				fmt.Printf("  Pool:               %d open, %d idle\n", cfg.Database.Pool.MaxOpen, cfg.Database.Pool.MaxIdle)
			}
			fmt.Printf("  Migrations:         %t\n", !cfg.Database.SkipMigrations)

			fmt.Println("\nTrip Pipeline:")
			fmt.Printf("  Workers:            %d\n", cfg.Pipeline.Workers)
			fmt.Printf("  Batch size:         %d\n", cfg.Pipeline.UnprocessedBatchSize)
			fmt.Printf("  Port proximity:     %.0f m\n", cfg.Pipeline.PortProximityMeters)
			fmt.Printf("  Interval:           %s\n", cfg.Pipeline.Interval)
			fmt.Printf("  Vessels:            %s\n", formatVessels(cfg.Pipeline.Vessels))

			fmt.Println("\nFuel Estimation:")
			fmt.Printf("  Run interval:       %s\n", cfg.Fuel.RunInterval)
			fmt.Printf("  Workers:            %d\n", cfg.Fuel.Workers)
			fmt.Printf("  Max speed:          %.0f kn\n", cfg.Fuel.MaxKnots)

			fmt.Println("\nDaemon:")
			fmt.Printf("  Health address:     %s\n", cfg.Daemon.HealthAddress)
			fmt.Printf("  PID file:           %s\n", cfg.Daemon.PIDFile)
			fmt.Printf("  Run on start:       %t\n", cfg.Daemon.RunOnStart)

			fmt.Println("\nLogging:")
			fmt.Printf("  Level:              %s\n", cfg.Logging.Level)
			fmt.Printf("  Format:             %s\n", cfg.Logging.Format)
			fmt.Printf("  Output:             %s\n", cfg.Logging.Output)

			fmt.Println("\nMetrics:")
			fmt.Printf("  Enabled:            %t\n", cfg.Metrics.Enabled)
			if cfg.Metrics.Enabled {
				fmt.Printf("  Listen:             %s:%d%s\n", cfg.Metrics.Host, cfg.Metrics.Port, cfg.Metrics.Path)
			}

			return nil
		},
	}
}

// newConfigSetVesselsCommand creates the config set-vessels subcommand
func newConfigSetVesselsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-vessels <vessel-id>...",
		Short: "Set default vessels",
		Long: `Set the vessels CLI jobs run for when --vessels is not given.

Every vessel must exist in the database.

Example:
  fishtrack config set-vessels 101 102`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid vessel id %q", arg)
				}
				ids = append(ids, id)
			}

			userConfigHandler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}

			// Verify vessels exist in database
			ctx, _, app, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			for _, id := range ids {
				if _, err := app.Store.FindByID(ctx, id); err != nil {
					return fmt.Errorf("vessel %d not found", id)
				}
			}

			if err := userConfigHandler.SetDefaultVessels(ids); err != nil {
				return fmt.Errorf("failed to set default vessels: %w", err)
			}

			fmt.Println("✓ Default vessels set successfully")
			fmt.Printf("  Vessels: %s\n", formatVessels(ids))
			fmt.Printf("\nCommands will now use these vessels by default.\n")
			fmt.Printf("Override with the --vessels flag.\n")

			return nil
		},
	}
}

// newConfigClearVesselsCommand creates the config clear-vessels subcommand
func newConfigClearVesselsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-vessels",
		Short: "Clear default vessels setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			userConfigHandler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}

			if err := userConfigHandler.ClearDefaultVessels(); err != nil {
				return fmt.Errorf("failed to clear default vessels: %w", err)
			}

			fmt.Println("✓ Default vessels cleared")
			fmt.Println("\nCommands now run for pipeline.vessels, or every vessel when that is empty.")

			return nil
		},
	}
}

// maskPassword hides the password of a connection URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}

func formatVessels(ids []int64) string {
	if len(ids) == 0 {
		return "(all)"
	}
	return fmt.Sprint(ids)
}
