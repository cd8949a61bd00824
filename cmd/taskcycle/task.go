package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/openhrms/taskcycle/internal/tasktree"
	"github.com/spf13/cobra"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Task management commands",
	}

	cmd.AddCommand(newTaskCreateCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskShowCmd())
	cmd.AddCommand(newTaskStatusCmd())
	return cmd
}

func newTaskCreateCmd() *cobra.Command {
	var (
		configPath  string
		title       string
		description string
		priority    string
		parentID    string
		createdBy   string
		deadline    string
		rule        string
		firstRun    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new task",
		Long:  "Creates a task with an auto-generated ID. Pass --rule and --first-run to create a recurring template.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			opts := tasktree.CreateOpts{
				Title:         title,
				Description:   description,
				Priority:      priority,
				ParentID:      parentID,
				CreatedBy:     createdBy,
				RecurringRule: rule,
			}
			if opts.Deadline, err = time.Parse(time.RFC3339, deadline); err != nil {
				return fmt.Errorf("parse deadline: %w", err)
			}
			if firstRun != "" {
				if opts.RecurringFirstRun, err = time.Parse("2006-01-02", firstRun); err != nil {
					return fmt.Errorf("parse first-run: %w", err)
				}
			}

			task, err := tasktree.Create(gormDB, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s\n", task.ID, task.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	cmd.Flags().StringVar(&title, "title", "", "task title (required)")
	cmd.Flags().StringVar(&description, "description", "", "detailed description")
	cmd.Flags().StringVar(&priority, "priority", "minor", "priority (minor, major, critical)")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent task ID")
	cmd.Flags().StringVar(&createdBy, "creator", "", "creating user ID")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (RFC 3339, required)")
	cmd.Flags().StringVar(&rule, "rule", "", "iCal recurrence rule (makes the task a template)")
	cmd.Flags().StringVar(&firstRun, "first-run", "", "first recurrence date (YYYY-MM-DD)")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("deadline")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var (
		configPath string
		status     string
		userID     string
		templates  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			tasks, err := tasktree.List(gormDB, tasktree.ListFilters{
				Status:           status,
				UserID:           userID,
				IncludeTemplates: templates,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tDEADLINE")
			for _, t := range tasks {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.Title, t.Status, t.Priority, t.Deadline.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&userID, "user", "", "filter by associated user")
	cmd.Flags().BoolVar(&templates, "templates", false, "include recurring templates")
	return cmd
}

func newTaskShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with its associations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			task, err := tasktree.Get(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", task.ID, task.Title)
			fmt.Fprintf(out, "Status: %s  Priority: %s  Approved: %v\n", task.Status, task.Priority, task.Approved)
			fmt.Fprintf(out, "Deadline: %s\n", task.Deadline.Format(time.RFC3339))
			if task.IsRecurring() {
				fmt.Fprintf(out, "Recurring template: %s\n", *task.RecurringRule)
			}
			for _, a := range task.Associations {
				marker := ""
				if a.ReadOnly {
					marker = " (inherited)"
				}
				fmt.Fprintf(out, "  %s: %s%s [%s]\n", a.Role, a.UserID, marker, a.CycleStatus)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	return cmd
}

func newTaskStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status <task-id> <status>",
		Short: "Transition a task to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := tasktree.UpdateStatus(gormDB, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	return cmd
}
