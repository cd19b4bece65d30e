package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/examkit/internal/ui/render"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show passed tests, passed exams and mistakes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			rec, err := rt.ctrl.Progress(ctx, rt.cfg.UserID)
			if err != nil {
				return err
			}
			output(cmd, render.Progress(rec))
			return nil
		})
	},
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List topics with question and part counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			topics, err := rt.ctrl.Topics(ctx, rt.cfg.UserID)
			if err != nil {
				return err
			}
			output(cmd, render.Topics(topics))
			return nil
		})
	},
}

var theoryCmd = &cobra.Command{
	Use:   "theory <topic>",
	Short: "Confirm the theory of a topic as read",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := strings.Join(args, " ")
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			next, err := rt.ctrl.ConfirmTheory(ctx, rt.cfg.UserID, topic)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Theory of %q confirmed.\n", strings.TrimSpace(topic))
			if next > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Next: examkit start test --test %d\n", next)
			}
			return nil
		})
	},
}
