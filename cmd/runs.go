package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lanceiro/radar-cli/internal/model"
	"github.com/lanceiro/radar-cli/internal/runlog"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List collect and audit run history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		pool, err := radarPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := runlog.New(pool).List(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs recorded.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "max number of runs to display")
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to out, newest first.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tSTATUS\tSTARTED\tDURATION\tSEEN\tNEW\tPUB\tQUAR\tFAIL\tERROR")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t-------\t--------\t----\t---\t---\t----\t----\t-----")

	for i := range runs {
		r := &runs[i]

		errMsg := r.Error
		if len(errMsg) > 40 {
			errMsg = errMsg[:37] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			truncateID(r.ID),
			r.Kind,
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Duration().Round(time.Second),
			r.Counters.Seen,
			r.Counters.New,
			r.Counters.Published,
			r.Counters.Quarantined,
			r.Counters.Failed,
			errMsg,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
