package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/fishtrack-go/internal/application/trips"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
)

// NewTripsCommand creates the trips command with subcommands
func NewTripsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trips",
		Short: "Trip pipeline operations",
		Long: `Run the trip pipeline and inspect assembled trips.

A pass assembles new trips for every selected vessel, then completes
computation steps (precision, distance, position layers, cargo weight,
fuel consumption) for trips that still have unprocessed steps.

Examples:
  fishtrack trips run --vessels 101
  fishtrack trips list --vessel 101 --assembler ers
  fishtrack trips current --vessel 101
  fishtrack trips reset --vessel 101 --assembler landings`,
	}

	cmd.AddCommand(newTripsRunCommand())
	cmd.AddCommand(newTripsListCommand())
	cmd.AddCommand(newTripsCurrentCommand())
	cmd.AddCommand(newTripsResetCommand())

	return cmd
}

// newTripsRunCommand creates the trips run subcommand
func newTripsRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one trip pipeline pass",
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

			result, err := app.Mediator.Send(ctx, &trips.RunTripsPipelineCommand{VesselIDs: ids})
			if err != nil {
				return err
			}
			response := result.(*trips.RunTripsPipelineResponse)
			report := response.Report

			fmt.Println("✓ Trip pipeline pass completed")
			fmt.Printf("  Run ID:                 %s\n", response.RunID)
			fmt.Printf("  Vessels:                %d\n", report.Vessels)
			fmt.Printf("  Trips created:          %d\n", report.TripsCreated)
			fmt.Printf("  Conflicts resolved:     %d\n", report.ConflictsResolved)
			fmt.Printf("  Without prior state:    %d\n", report.NoPriorState)
			fmt.Printf("  Resets:                 %d\n", report.Resets)
			fmt.Printf("  Unprocessed completed:  %d\n", report.UnprocessedCompleted)
			fmt.Printf("  Failures:               %d\n", report.Failures)
			return nil
		},
	}
}

// newTripsListCommand creates the trips list subcommand
func newTripsListCommand() *cobra.Command {
	var (
		vesselID  int64
		assembler string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the trips of one vessel",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := trip.ParseAssemblerKind(assembler)
			if err != nil {
				return err
			}

			ctx, _, app, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := app.Store.Trips(ctx, vesselID, kind)
			if err != nil {
				return fmt.Errorf("failed to list trips: %w", err)
			}
			if len(list) == 0 {
				fmt.Println("No trips found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPERIOD\tDISTANCE (m)\tFUEL (l)\tSTEPS")
			for _, t := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					t.ID,
					t.Period.String(),
					formatOptional(t.Distance, "%.0f"),
					formatOptional(t.FuelLiters, "%.1f"),
					formatStatuses(t.Statuses),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&vesselID, "vessel", 0, "Vessel id [required]")
	cmd.Flags().StringVar(&assembler, "assembler", "ers", "Assembler kind (ers or landings)")
	cmd.MarkFlagRequired("vessel")

	return cmd
}

// newTripsCurrentCommand creates the trips current subcommand
func newTripsCurrentCommand() *cobra.Command {
	var vesselID int64

	cmd := &cobra.Command{
		Use:   "current",
		Short: "Show the open ERS trip of one vessel",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, app, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			current, err := app.Store.CurrentTrip(ctx, vesselID)
			if err != nil {
				return fmt.Errorf("failed to get current trip: %w", err)
			}
			if current == nil {
				fmt.Printf("Vessel %d has no open trip\n", vesselID)
				return nil
			}

			fmt.Printf("Vessel %d is at sea\n", vesselID)
			fmt.Printf("  Departed:        %s\n", current.DepartureTime.Format(time.RFC3339))
			fmt.Printf("  Departure port:  %s\n", formatOptional(current.DeparturePortID, "%s"))
			return nil
		},
	}

	cmd.Flags().Int64Var(&vesselID, "vessel", 0, "Vessel id [required]")
	cmd.MarkFlagRequired("vessel")

	return cmd
}

// newTripsResetCommand creates the trips reset subcommand
func newTripsResetCommand() *cobra.Command {
	var (
		vesselID  int64
		assembler string
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Queue a full rebuild of a vessel's trips",
		Long: `Queue a reset for one vessel and assembler kind.

The next pass discards every trip of the vessel for that assembler and
rebuilds them from all events.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := trip.ParseAssemblerKind(assembler)
			if err != nil {
				return err
			}

			ctx, _, app, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := app.Store.QueueReset(ctx, vesselID, kind); err != nil {
				return fmt.Errorf("failed to queue reset: %w", err)
			}

			fmt.Printf("✓ Reset queued for vessel %d (%s)\n", vesselID, kind)
			return nil
		},
	}

	cmd.Flags().Int64Var(&vesselID, "vessel", 0, "Vessel id [required]")
	cmd.Flags().StringVar(&assembler, "assembler", "ers", "Assembler kind (ers or landings)")
	cmd.MarkFlagRequired("vessel")

	return cmd
}

// formatStatuses renders one letter per step: S successful, A attempted, - unprocessed
func formatStatuses(s trip.StepStatuses) string {
	var b strings.Builder
	for _, step := range trip.ComputationSteps {
		switch s.Get(step) {
		case trip.StatusSuccessful:
			b.WriteByte('S')
		case trip.StatusAttempted:
			b.WriteByte('A')
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
