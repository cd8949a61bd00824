package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/openhrms/taskcycle/internal/webapi"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if port == 0 {
				port = cfg.Server.Port
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := &webapi.Server{
				DB:           gormDB,
				Assoc:        assocDeps(cfg),
				Verification: verificationDeps(cfg),
				Recurrence:   recurrenceDeps(cfg),
				Horizon:      horizon(cfg),
			}
			return webapi.Start(ctx, webapi.StartOpts{
				Server: server,
				Port:   port,
				Out:    cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	return cmd
}
