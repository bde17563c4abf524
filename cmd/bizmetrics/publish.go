package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bizmetrics/internal/idhash"
	"bizmetrics/internal/pipeline"
	"bizmetrics/internal/storage"
	chstore "bizmetrics/internal/storage/clickhouse"
	"bizmetrics/internal/storage/memory"
	pgstore "bizmetrics/internal/storage/postgres"
)

// Publish backends.
const (
	backendMemory   = "memory"
	backendPostgres = "postgres"
)

func newPublishCmd(flags *globalFlags) *cobra.Command {
	var (
		backend   string
		contentID bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Run the pipeline and store the result as a new snapshot",
		Long: `Run the pipeline and store the result as a new snapshot.

Backends:
  memory     in-process stores, useful as a dry run
  postgres   businesses and deals in PostgreSQL; monthly series go to
             ClickHouse when a ClickHouse DSN is configured`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			result, err := a.pipeline().Run(ctx)
			if err != nil {
				a.log.Error("Pipeline failed", zap.Error(err))
				return err
			}

			publisher := pipeline.NewPublisher(backend, stores, a.log, a.metrics)
			var id string
			if contentID {
				id = idhash.SnapshotID(result.Content())
				publisher.WithIDGenerator(func() string { return id })
			}
			snap, err := publisher.Publish(ctx, result)
			if contentID && errors.Is(err, storage.ErrDuplicateKey) {
				if _, cerr := publisher.Confirm(ctx, id, result); cerr != nil {
					a.log.Error("Snapshot exists but is incomplete, run verify to inspect it",
						zap.String("snapshot_id", id), zap.Error(cerr))
					return cerr
				}
				a.log.Info("Snapshot already published", zap.String("snapshot_id", id))
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), snap.SnapshotID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&backend, "backend", "b", backendMemory, "Storage backend: memory or postgres")
	cmd.Flags().BoolVar(&contentID, "content-id", false, "Derive the snapshot ID from the inputs so republishing is a no-op")
	return cmd
}

// createStores opens the stores of one backend. cleanup closes connections.
func createStores(ctx context.Context, a *app, backend string) (pipeline.Stores, func(), error) {
	switch backend {
	case backendMemory:
		return pipeline.Stores{
			Snapshots:  memory.NewSnapshotStore(),
			Businesses: memory.NewBusinessStore(),
			Deals:      memory.NewDealStore(),
			Monthly:    memory.NewMonthlyMetricStore(),
		}, func() {}, nil

	case backendPostgres:
		if a.cfg.PostgresDSN == "" {
			return pipeline.Stores{}, nil, fmt.Errorf("backend %s: postgres_dsn is required", backend)
		}
		pool, err := pgstore.NewPool(ctx, a.cfg.PostgresDSN)
		if err != nil {
			return pipeline.Stores{}, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		stores := pipeline.Stores{
			Snapshots:  pgstore.NewSnapshotStore(pool),
			Businesses: pgstore.NewBusinessStore(pool),
			Deals:      pgstore.NewDealStore(pool),
		}
		if a.cfg.ClickHouseDSN == "" {
			a.log.Warn("No ClickHouse DSN configured, monthly series are not published")
			return stores, pool.Close, nil
		}

		conn, err := chstore.NewConn(ctx, a.cfg.ClickHouseDSN)
		if err != nil {
			pool.Close()
			return pipeline.Stores{}, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		stores.Monthly = chstore.NewMonthlyMetricStore(conn)
		cleanup := func() {
			if err := conn.Close(); err != nil {
				a.log.Error("Failed to close ClickHouse connection", zap.Error(err))
			}
			pool.Close()
		}
		return stores, cleanup, nil

	default:
		return pipeline.Stores{}, nil, fmt.Errorf("unknown backend %q", backend)
	}
}
