package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/openhrms/taskcycle/internal/worker"
	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the background worker daemon",
		Long:  "Drains the background job queue (structural operations) and fires the daily recurring-task materialization on its cron schedule.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			deps := worker.Deps{
				Recurrence: recurrenceDeps(cfg),
				LeaseTTL:   time.Duration(cfg.Worker.LeaseTTLSeconds) * time.Second,
			}
			return worker.RunDaemon(ctx, gormDB, cfg, deps, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	return cmd
}
