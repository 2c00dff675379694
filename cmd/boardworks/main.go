package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/boardworks/boardworks/internal/app"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "boardworks",
		Short:         "Invoicing service for board resurfacing franchises",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, serve)
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newJobsCmd())
	return root
}

// withRuntime loads configuration and the logger before running fn. Errors
// are logged here so commands only return them.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, cfg *app.Config, logger *slog.Logger) error) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return err
	}
	logger := app.NewLogger(cfg)
	if err := fn(cmd.Context(), cfg, logger); err != nil {
		logger.Error(cmd.Name()+" failed", slog.Any("error", err))
		return err
	}
	return nil
}
