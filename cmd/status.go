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
	"github.com/lanceiro/radar-cli/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline state at a glance",
	Long:  "Shows notice counts by status, the checkpoint size, the last successful runs, and the most-sighted counterpart domains.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("status"); err != nil {
			return err
		}

		pool, err := radarPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		st := store.New(pool)
		runs := runlog.New(pool)

		counts, err := st.Counts(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		// Checkpoint trouble should not hide the rest of the summary.
		var seenCount int64 = -1
		if seen, err := initCheckpoint(pool); err == nil {
			if n, err := seen.Count(ctx); err == nil {
				seenCount = n
			}
			_ = seen.Close()
		}

		lastCollect, err := runs.LastSuccess(ctx, model.RunCollect)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		lastAudit, err := runs.LastSuccess(ctx, model.RunAudit)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		domains, err := st.ListDomains(ctx, 5)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		formatStatus(os.Stdout, counts, seenCount, lastCollect, lastAudit, domains)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// formatStatus writes the one-screen pipeline summary to out.
func formatStatus(out io.Writer, counts map[model.Status]int64, seenCount int64, lastCollect, lastAudit *time.Time, domains []model.CounterpartDomain) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Published:\t%d\n", counts[model.StatusPublished])
	_, _ = fmt.Fprintf(w, "Quarantined:\t%d\n", counts[model.StatusQuarantined])
	if seenCount >= 0 {
		_, _ = fmt.Fprintf(w, "Checkpoint IDs:\t%d\n", seenCount)
	}
	_, _ = fmt.Fprintf(w, "Last collect:\t%s\n", formatWhen(lastCollect))
	_, _ = fmt.Fprintf(w, "Last audit:\t%s\n", formatWhen(lastAudit))
	_ = w.Flush()

	if len(domains) > 0 {
		_, _ = fmt.Fprintln(out, "\nTop counterpart domains:")
		dw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, d := range domains {
			_, _ = fmt.Fprintf(dw, "  %s\t%d\n", d.Domain, d.Occurrences)
		}
		_ = dw.Flush()
	}
}

// formatWhen renders an optional timestamp.
func formatWhen(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format("2006-01-02 15:04")
}
