package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/fishtrack-go/internal/application/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
)

// NewFuelCommand creates the fuel command with subcommands
func NewFuelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fuel",
		Short: "Day-bucketed fuel estimation",
		Long: `Estimate fuel consumption per vessel and day.

Runs are rate-limited: a run is skipped when the previous completed run
finished less than fuel.run_interval ago, unless --force is given.

Examples:
  fishtrack fuel run
  fishtrack fuel run --force --vessels 101
  fishtrack fuel list --vessel 101 --from 2024-01-01 --to 2024-01-31`,
	}

	cmd.AddCommand(newFuelRunCommand())
	cmd.AddCommand(newFuelListCommand())

	return cmd
}

// newFuelRunCommand creates the fuel run subcommand
func newFuelRunCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Estimate every missing vessel-day up to yesterday",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, app, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			ids, err := resolveVesselIDs(cfg)
			if err != nil {
				return err
			}

			result, err := app.Mediator.Send(ctx, &fuel.RunFuelEstimationCommand{VesselIDs: ids, Force: force})
			if err != nil {
				return err
			}
			response := result.(*fuel.RunFuelEstimationResponse)

			if response.Skipped {
				fmt.Println("Fuel estimation skipped: last run is too recent (use --force)")
				return nil
			}
			fmt.Println("✓ Fuel estimation completed")
			fmt.Printf("  Run ID:     %s\n", response.RunID)
			fmt.Printf("  Estimates:  %d\n", response.Estimates)
			fmt.Printf("  Failures:   %d\n", response.Failures)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Ignore the run interval")

	return cmd
}

// newFuelListCommand creates the fuel list subcommand
func newFuelListCommand() *cobra.Command {
	var (
		vesselID int64
		from     string
		to       string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List day estimates of one vessel",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse("2006-01-02", from)
			if err != nil {
				return fmt.Errorf("invalid from date format: %w", err)
			}
			end, err := time.Parse("2006-01-02", to)
			if err != nil {
				return fmt.Errorf("invalid to date format: %w", err)
			}
			if end.Before(start) {
				return fmt.Errorf("--to must not be before --from")
			}

			ctx, _, app, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			estimates, err := app.Store.FuelEstimates(ctx, vesselID, shared.Closed(start, end))
			if err != nil {
				return fmt.Errorf("failed to list fuel estimates: %w", err)
			}
			if len(estimates) == 0 {
				fmt.Println("No estimates found")
				return nil
			}

			total := 0.0
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tLITERS\tAIS\tVMS\tENGINE VERSION")
			for _, e := range estimates {
				total += e.Liters
				fmt.Fprintf(w, "%s\t%.1f\t%d\t%d\t%d\n",
					e.Date.Format("2006-01-02"), e.Liters, e.AISPositions, e.VMSPositions, e.EngineVersion)
			}
			fmt.Fprintf(w, "TOTAL\t%.1f\t\t\t\n", total)
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&vesselID, "vessel", 0, "Vessel id [required]")
	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD) [required]")
	cmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD) [required]")
	cmd.MarkFlagRequired("vessel")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}
