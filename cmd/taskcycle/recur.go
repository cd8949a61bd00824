package main

import (
	"fmt"
	"time"

	"github.com/openhrms/taskcycle/internal/recurrence"
	"github.com/spf13/cobra"
)

func newRecurCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recur",
		Short: "Recurring template commands",
	}

	cmd.AddCommand(newRecurPopulateCmd())
	cmd.AddCommand(newRecurRunCmd())
	cmd.AddCommand(newRecurStopCmd())
	return cmd
}

func newRecurPopulateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "populate <template-id>",
		Short: "Expand a template's recurrence rule into the occurrence queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := recurrence.PopulateQueue(gormDB, args[0], horizon(cfg)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queue populated for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	return cmd
}

func newRecurRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Materialize all due queued occurrences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			res, err := recurrence.RunDueRecurrences(gormDB, recurrenceDeps(cfg), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d, skipped %d, abandoned %d, failed %d\n",
				res.Created, res.Skipped, res.Abandoned, res.Failed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	return cmd
}

func newRecurStopCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stop <template-id>",
		Short: "Stop a template and drop its unmaterialized occurrences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := recurrence.StopRecurring(gormDB, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recurrence stopped for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	return cmd
}
