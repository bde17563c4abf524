package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bizmetrics/internal/pipeline"
)

func newReportCmd(flags *globalFlags) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the pipeline and write the report and CSV outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			defer a.sync()
			if outputDir != "" {
				a.cfg.OutputDir = outputDir
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			p := a.pipeline()
			result, err := p.Run(ctx)
			if err != nil {
				a.log.Error("Pipeline failed", zap.Error(err))
				return err
			}
			if err := p.WriteOutputs(result, a.cfg.OutputDir); err != nil {
				a.log.Error("Failed to write outputs", zap.Error(err))
				return err
			}

			a.log.Info("Report written",
				zap.String("dir", a.cfg.OutputDir),
				zap.String("report", pipeline.ReportFile),
				zap.Int("businesses", len(result.Businesses)),
				zap.Int("deals", len(result.Deals)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory (overrides config)")
	return cmd
}
