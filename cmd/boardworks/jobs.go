package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/boardworks/boardworks/cmd/boardworks/cli"
	"github.com/boardworks/boardworks/internal/app"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	cmd.AddCommand(newJobsTriggerCmd(), newJobsInspectCmd())
	return cmd
}

func newJobsTriggerCmd() *cobra.Command {
	var (
		warm    bool
		regions []string
	)
	cmd := &cobra.Command{
		Use:   "trigger <sweep-overdue|stats-warmup>",
		Short: "Enqueue a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.TriggerOptions{WarmStats: warm}
			for _, raw := range regions {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid region %q: %w", raw, err)
				}
				opts.RegionIDs = append(opts.RegionIDs, id)
			}
			if _, err := cli.BuildTask(args[0], opts); err != nil {
				return err
			}
			return withRuntime(cmd, func(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
				jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
				if err != nil {
					return err
				}
				defer func() {
					if err := jobsCLI.Close(); err != nil {
						logger.Warn("jobs cli close", slog.Any("error", err))
					}
				}()
				info, err := jobsCLI.Trigger(ctx, args[0], opts)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (%s) on %s\n", info.Type, info.ID, info.Queue)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&warm, "warm-stats", true, "warm the statistics cache after a sweep that changed invoices")
	cmd.Flags().StringSliceVar(&regions, "region", nil, "region ID to include in a statistics warmup (repeatable)")
	return cmd
}

func newJobsInspectCmd() *cobra.Command {
	var scheduled int
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print queue depth as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
				jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
				if err != nil {
					return err
				}
				defer func() {
					if err := jobsCLI.Close(); err != nil {
						logger.Warn("jobs cli close", slog.Any("error", err))
					}
				}()
				stats, err := jobsCLI.InspectQueue(ctx)
				if err != nil {
					return err
				}
				out := struct {
					cli.QueueStats
					Upcoming []string `json:"upcoming,omitempty"`
				}{QueueStats: stats}
				if scheduled > 0 {
					infos, err := jobsCLI.ListScheduled(ctx, scheduled)
					if err != nil {
						return err
					}
					for _, info := range infos {
						out.Upcoming = append(out.Upcoming, fmt.Sprintf("%s at %s", info.Type, info.NextProcessAt.Format("2006-01-02T15:04:05Z07:00")))
					}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			})
		},
	}
	cmd.Flags().IntVar(&scheduled, "scheduled", 0, "also list up to N scheduled tasks")
	return cmd
}
