package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bizmetrics/internal/verification"
)

// maxPrintedDivergences caps the divergences written to stdout.
const maxPrintedDivergences = 20

func newVerifyCmd(flags *globalFlags) *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "verify <snapshot-id>",
		Short: "Recompute a published snapshot and compare it with the stored rows",
		Long: `Recompute a published snapshot and compare it with the stored rows.

The as-of date defaults to the stored snapshot's, so the recomputation sees
the same reference date. Exits non-zero when any value diverges.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshotID := args[0]
			a, err := setup(flags)
			if err != nil {
				return err
			}
			defer a.sync()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			stores, cleanup, err := createStores(ctx, a, backend)
			if err != nil {
				return err
			}
			defer cleanup()

			if flags.asOf == "" {
				snap, err := stores.Snapshots.GetByID(ctx, snapshotID)
				if err != nil {
					return fmt.Errorf("get snapshot %s: %w", snapshotID, err)
				}
				a.cfg.AsOf = snap.AsOf.Format("2006-01-02")
			}

			result, err := a.pipeline().Run(ctx)
			if err != nil {
				a.log.Error("Pipeline failed", zap.Error(err))
				return err
			}

			report, err := verification.NewVerifier(stores).Verify(ctx, snapshotID, result)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "snapshot %s: %d businesses, %d deals, %d metric points\n",
				report.SnapshotID, report.Businesses, report.Deals, report.Points)
			if report.Match {
				fmt.Fprintln(out, "match")
				return nil
			}
			for i, d := range report.Divergences {
				if i == maxPrintedDivergences {
					fmt.Fprintf(out, "... %d more\n", len(report.Divergences)-i)
					break
				}
				fmt.Fprintf(out, "%s %s %s: stored %v, recomputed %v\n", d.Table, d.Key, d.Field, d.Expected, d.Actual)
			}
			return fmt.Errorf("snapshot %s: %d divergences", snapshotID, len(report.Divergences))
		},
	}
	cmd.Flags().StringVarP(&backend, "backend", "b", backendPostgres, "Storage backend: memory or postgres")
	return cmd
}
