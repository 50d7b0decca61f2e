package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/fishtrack-go/internal/domain/run"
)

// NewRunsCommand creates the runs command
func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded pipeline runs",
	}
	cmd.AddCommand(newRunsListCommand())
	return cmd
}

func newRunsListCommand() *cobra.Command {
	var (
		kind  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the latest runs of one job",
		RunE: func(cmd *cobra.Command, args []string) error {
			k := run.Kind(kind)
			if k != run.KindTrips && k != run.KindFuel {
				return fmt.Errorf("unknown run kind %q (trips or fuel)", kind)
			}

			ctx, _, app, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := app.Store.ListRuns(ctx, k, limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tRUNTIME\tVESSELS\tTRIPS\tESTIMATES\tFAILURES\tERROR")
			for _, r := range runs {
				c := r.Counters()
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					r.ID(),
					r.Status(),
					formatOptional(r.StartedAt(), "%v"),
					r.Runtime().Round(time.Millisecond),
					c.VesselsProcessed,
					c.TripsCreated,
					c.FuelEstimates,
					c.Failures,
					r.Error(),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "trips", "Run kind (trips or fuel)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}
