package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lanceiro/radar-cli/internal/auditor"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Re-run extraction over records already in the store",
	Long: `Audit replays resolution and normalization from persisted state: the raw
listing payload, the saved description, and archived attachment files.
Records quarantined for a missing auction date are republished when the
date turns up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initAudit(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		onlyUnresolved, _ := cmd.Flags().GetBool("only-unresolved")

		zap.L().Info("audit starting",
			zap.Int("limit", limit),
			zap.Bool("only_unresolved", onlyUnresolved),
		)

		counters, err := env.Auditor.Run(ctx, auditor.Options{
			Limit:          limit,
			OnlyUnresolved: onlyUnresolved,
		})
		if err != nil {
			return eris.Wrap(err, "audit")
		}

		printCounters(os.Stdout, counters)
		return nil
	},
}

func init() {
	auditCmd.Flags().Int("limit", 0, "max records to examine (0 = store default)")
	auditCmd.Flags().Bool("only-unresolved", false, "only records missing their auction date or quarantined")
	rootCmd.AddCommand(auditCmd)
}
