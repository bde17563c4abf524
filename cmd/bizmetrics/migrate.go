package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bizmetrics/internal/storage/migrations"
	pgstore "bizmetrics/internal/storage/postgres"
)

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded PostgreSQL and ClickHouse migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			defer a.sync()

			if a.cfg.PostgresDSN == "" && a.cfg.ClickHouseDSN == "" {
				return errors.New("migrate: no postgres_dsn or clickhouse_dsn configured")
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if a.cfg.PostgresDSN != "" {
				pool, err := pgstore.NewPool(ctx, a.cfg.PostgresDSN)
				if err != nil {
					return fmt.Errorf("connect to postgres: %w", err)
				}
				applied, err := migrations.RunPostgresMigrations(ctx, pool)
				pool.Close()
				if err != nil {
					return err
				}
				a.log.Info("PostgreSQL migrations applied", zap.Strings("versions", applied))
			}

			if a.cfg.ClickHouseDSN != "" {
				conn, err := migrations.RunClickhouseMigrations(ctx, a.cfg.ClickHouseDSN)
				if err != nil {
					return err
				}
				if err := conn.Close(); err != nil {
					a.log.Warn("Failed to close ClickHouse connection", zap.Error(err))
				}
				a.log.Info("ClickHouse migrations applied")
			}
			return nil
		},
	}
}
