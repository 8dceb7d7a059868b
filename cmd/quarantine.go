package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lanceiro/radar-cli/internal/model"
	"github.com/lanceiro/radar-cli/internal/store"
)

var quarantineCmd = &cobra.Command{
	Use:   "quarantine",
	Short: "List withheld records and why",
	Long:  "Lists quarantined notices with their reasons. Records never silently disappear; this is where the held ones surface.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("quarantine"); err != nil {
			return err
		}

		pool, err := radarPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		limit, _ := cmd.Flags().GetInt("limit")

		notices, err := store.New(pool).ListQuarantined(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "quarantine")
		}

		if len(notices) == 0 {
			fmt.Fprintln(os.Stderr, "No quarantined records.")
			return nil
		}

		formatQuarantined(os.Stdout, notices)
		return nil
	},
}

var quarantineReleaseCmd = &cobra.Command{
	Use:   "release <external-id>",
	Short: "Manually return a quarantined record to the published pool",
	Long:  "Clears the quarantine reason and publishes the record. The gate still hides it until its auction date is resolved.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("quarantine"); err != nil {
			return err
		}

		pool, err := radarPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := store.New(pool).Republish(ctx, args[0]); err != nil {
			return eris.Wrap(err, "quarantine release")
		}

		fmt.Printf("Released %s\n", args[0])
		return nil
	},
}

func init() {
	quarantineCmd.Flags().Int("limit", 50, "max records to display")
	quarantineCmd.AddCommand(quarantineReleaseCmd)
	rootCmd.AddCommand(quarantineCmd)
}

// formatQuarantined writes a tabular list of withheld notices to out.
func formatQuarantined(out io.Writer, notices []model.Notice) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "EXTERNAL_ID\tUF\tCITY\tAUTHORITY\tREASON\tUPDATED")
	_, _ = fmt.Fprintln(w, "-----------\t--\t----\t---------\t------\t-------")

	for i := range notices {
		n := &notices[i]

		authority := n.AuthorityName
		if len(authority) > 30 {
			authority = authority[:27] + "..."
		}

		updated := "-"
		if n.UpdatedAt != nil {
			updated = n.UpdatedAt.Format("2006-01-02 15:04")
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			n.ExternalID,
			n.StateCode,
			n.CityName,
			authority,
			n.QuarantineReason,
			updated,
		)
	}
	_ = w.Flush()
}
