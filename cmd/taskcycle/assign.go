package main

import (
	"fmt"
	"strings"

	"github.com/openhrms/taskcycle/internal/assoc"
	"github.com/spf13/cobra"
)

func newAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Reconcile task associations",
	}

	cmd.AddCommand(newAssignResponsibleCmd())
	cmd.AddCommand(newAssignObserversCmd())
	return cmd
}

func newAssignResponsibleCmd() *cobra.Command {
	var (
		configPath string
		users      []string
	)

	cmd := &cobra.Command{
		Use:   "responsible <task-id>",
		Short: "Set the responsible persons of a task",
		Long:  "Reconciles the responsible persons against the given set. Each --user takes the form id:coretask1,coretask2.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			desired, err := parseAssignments(users)
			if err != nil {
				return err
			}
			if err := assoc.SetResponsible(gormDB, assocDeps(cfg), args[0], desired); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Responsible persons of %s reconciled (%d users)\n", args[0], len(desired))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	cmd.Flags().StringArrayVar(&users, "user", nil, "user assignment as id:coretask1,coretask2 (repeatable)")
	return cmd
}

func newAssignObserversCmd() *cobra.Command {
	var (
		configPath string
		users      []string
	)

	cmd := &cobra.Command{
		Use:   "observers <task-id>",
		Short: "Set the observers of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			desired, err := parseAssignments(users)
			if err != nil {
				return err
			}
			if err := assoc.SetObservers(gormDB, assocDeps(cfg), args[0], desired); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Observers of %s reconciled (%d users)\n", args[0], len(desired))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	cmd.Flags().StringArrayVar(&users, "user", nil, "user ID (repeatable)")
	return cmd
}

// parseAssignments converts id:coretask1,coretask2 flags into assignments.
func parseAssignments(flags []string) ([]assoc.Assignment, error) {
	assignments := make([]assoc.Assignment, 0, len(flags))
	for _, f := range flags {
		id, coreTasks, _ := strings.Cut(f, ":")
		if id == "" {
			return nil, fmt.Errorf("invalid --user %q", f)
		}
		a := assoc.Assignment{UserID: id}
		if coreTasks != "" {
			a.CoreTasks = strings.Split(coreTasks, ",")
		}
		assignments = append(assignments, a)
	}
	return assignments, nil
}
