package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bizmetrics/internal/api"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the metrics as a JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			defer a.sync()
			if addr != "" {
				a.cfg.HTTPAddr = addr
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			h := api.NewHandler(a.pipeline(), a.log, a.metrics, a.registry)
			srv := &http.Server{
				Addr:              a.cfg.HTTPAddr,
				Handler:           h,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("API server starting",
					zap.String("address", a.cfg.HTTPAddr),
					zap.String("environment", a.cfg.Environment))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					a.log.Error("API server failed", zap.Error(err))
					return err
				}
				return nil
			case <-ctx.Done():
			}

			a.log.Info("Shutting down API server")
			shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stop()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}
