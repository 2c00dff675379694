package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/boardworks/boardworks/internal/app"
	"github.com/boardworks/boardworks/internal/platform/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
				pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: 2})
				if err != nil {
					return fmt.Errorf("connect postgres: %w", err)
				}
				defer pool.Close()

				applied, err := db.Migrate(ctx, pool)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
					return nil
				}
				for _, version := range applied {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", version)
				}
				return nil
			})
		},
	}
}
