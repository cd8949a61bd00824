package main

import (
	"fmt"

	"github.com/openhrms/taskcycle/internal/verification"
	"github.com/spf13/cobra"
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Verification cycle commands",
	}

	cmd.AddCommand(newScoreRecordCmd())
	cmd.AddCommand(newScoreHRCmd())
	cmd.AddCommand(newScoreAckCmd())
	cmd.AddCommand(newScoreEfficiencyCmd())
	return cmd
}

func newScoreRecordCmd() *cobra.Command {
	var (
		configPath string
		score      int
		remarks    string
		actor      string
	)

	cmd := &cobra.Command{
		Use:   "record <task-id> <user-id>",
		Short: "Record a verification score for a responsible person",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := verification.RecordScore(gormDB, verificationDeps(cfg), args[0], args[1], score, remarks, actor); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scored %s with %d on %s\n", args[1], score, args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	cmd.Flags().IntVar(&score, "score", 0, "score 1-10 (required)")
	cmd.Flags().StringVar(&remarks, "remarks", "", "score remarks (required)")
	cmd.Flags().StringVar(&actor, "actor", "", "acting user ID (task creator)")
	cmd.MarkFlagRequired("score")
	cmd.MarkFlagRequired("remarks")
	return cmd
}

func newScoreHRCmd() *cobra.Command {
	var (
		configPath string
		score      int
		remarks    string
		actor      string
	)

	cmd := &cobra.Command{
		Use:   "hr <task-id> <user-id>",
		Short: "Record an HR round for a forwarded association",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := verification.RecordHRScore(gormDB, verificationDeps(cfg), args[0], args[1], score, remarks, actor); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "HR approved %s with %d on %s\n", args[1], score, args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	cmd.Flags().IntVar(&score, "score", 0, "score 1-10 (required)")
	cmd.Flags().StringVar(&remarks, "remarks", "", "score remarks (required)")
	cmd.Flags().StringVar(&actor, "actor", "", "acting HR user ID")
	cmd.MarkFlagRequired("score")
	cmd.MarkFlagRequired("remarks")
	return cmd
}

func newScoreAckCmd() *cobra.Command {
	var (
		configPath string
		decline    bool
		remarks    string
	)

	cmd := &cobra.Command{
		Use:   "ack <task-id> <user-id>",
		Short: "Acknowledge or decline the pending score",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := verification.Acknowledge(gormDB, verificationDeps(cfg), args[0], args[1], !decline, remarks); err != nil {
				return err
			}
			verb := "acknowledged"
			if decline {
				verb = "declined"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Score on %s %s by %s\n", args[0], verb, args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	cmd.Flags().BoolVar(&decline, "decline", false, "decline instead of accept")
	cmd.Flags().StringVar(&remarks, "remarks", "", "acknowledgment remarks (required when declining)")
	return cmd
}

func newScoreEfficiencyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "efficiency <task-id> <user-id>",
		Short: "Show the stored efficiency breakdown",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			b, err := verification.GetEfficiency(gormDB, args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Overall: %.2f\n", b.Overall)
			fmt.Fprintf(out, "  from priority:   %.2f\n", b.FromPriority)
			fmt.Fprintf(out, "  from timeliness: %.2f\n", b.FromTimeliness)
			fmt.Fprintf(out, "  from score:      %.2f\n", b.FromScore)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskcycle.yaml", "path to config file")
	return cmd
}
