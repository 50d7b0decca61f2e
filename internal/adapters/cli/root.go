package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	vesselIDs  []int64
	verbose    bool
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fishtrack",
		Short: "fishtrack CLI - run the trip pipeline and fuel estimation on demand",
		Long: `fishtrack assembles vessel trips from ERS messages and landing receipts,
enriches them through the computation steps and estimates fuel consumption.

The CLI runs the same jobs as the daemon against the configured database.

Examples:
  fishtrack trips run
  fishtrack trips run --vessels 101,102
  fishtrack trips list --vessel 101
  fishtrack trips reset --vessel 101 --assembler ers
  fishtrack fuel run --force
  fishtrack runs list --kind trips
  fishtrack daemon status`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: search ./config.yaml, ./configs, /etc/fishtrack)")
	rootCmd.PersistentFlags().Int64SliceVar(&vesselIDs, "vessels", nil,
		"Restrict jobs to these vessel ids (default: user config, then pipeline.vessels)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	// Add command groups
	rootCmd.AddCommand(NewTripsCommand())
	rootCmd.AddCommand(NewFuelCommand())
	rootCmd.AddCommand(NewRunsCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewDaemonCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
