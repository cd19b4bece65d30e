package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/examkit/internal/app"
	"github.com/abhisek/examkit/internal/session"
	"github.com/abhisek/examkit/internal/ui/render"
)

func modeNames() string {
	names := make([]string, len(session.Modes))
	for i, m := range session.Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

var startCmd = &cobra.Command{
	Use:   "start <mode>",
	Short: "Start a new session",
	Long:  "Start a new session, replacing the current one. Modes: " + modeNames() + ".",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		testID, _ := cmd.Flags().GetInt("test")
		seed, _ := cmd.Flags().GetInt64("seed")
		mistakesOnly, _ := cmd.Flags().GetBool("mistakes-only")
		topic, _ := cmd.Flags().GetString("topic")
		part, _ := cmd.Flags().GetInt("part")

		p := session.StartParams{
			Mode:         args[0],
			TestID:       testID,
			Seed:         seed,
			MistakesOnly: mistakesOnly,
			Topic:        topic,
			Part:         part,
		}
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			v, err := rt.ctrl.Start(ctx, rt.cfg.UserID, p)
			if err != nil {
				return explain(err)
			}
			output(cmd, render.Session(v))
			return nil
		})
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer <option>",
	Short: "Answer the current question with a 1-based option number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		choice, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid option %q", args[0])
		}
		return showAction(cmd, func(ctx context.Context, rt *runtime) (app.View, error) {
			return rt.ctrl.Answer(ctx, rt.cfg.UserID, choice)
		})
	},
}

var gotoCmd = &cobra.Command{
	Use:   "goto <number>",
	Short: "Move to a question by its 1-based number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid question number %q", args[0])
		}
		return showAction(cmd, func(ctx context.Context, rt *runtime) (app.View, error) {
			return rt.ctrl.GoTo(ctx, rt.cfg.UserID, n-1)
		})
	},
}

var finishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Finish the current session and record the result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showAction(cmd, func(ctx context.Context, rt *runtime) (app.View, error) {
			return rt.ctrl.Finish(ctx, rt.cfg.UserID)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current question",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showAction(cmd, func(ctx context.Context, rt *runtime) (app.View, error) {
			return rt.ctrl.Current(ctx, rt.cfg.UserID)
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			if err := rt.ctrl.Reset(ctx, rt.cfg.UserID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session discarded.")
			return nil
		})
	},
}

// showAction renders the view even when the action was rejected, so the
// learner sees the state the rejection refers to.
func showAction(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) (app.View, error)) error {
	return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
		v, err := fn(ctx, rt)
		if v.Session != nil {
			output(cmd, render.Session(v))
		}
		return explain(err)
	})
}

// explain turns domain errors into hints for the command line.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNoSession):
		return fmt.Errorf("%w; run `examkit start <mode>` first", err)
	case errors.Is(err, session.ErrSessionInvalid), errors.Is(err, session.ErrQuestionMissing):
		return fmt.Errorf("%w; the session was discarded, start a new one", err)
	case errors.Is(err, session.ErrSessionFinished), errors.Is(err, session.ErrTimeExpired):
		return fmt.Errorf("%w; run `examkit start <mode>` for a new session", err)
	case errors.Is(err, session.ErrSourceNotFound):
		return fmt.Errorf("%w; run `examkit topics` to list topics", err)
	}
	return err
}

func init() {
	startCmd.Flags().Int("test", 0, "Test id (mode test)")
	startCmd.Flags().Int64("seed", 0, "Sampling seed (0 uses the mode default)")
	startCmd.Flags().Bool("mistakes-only", false, "Sample from past mistakes (mode trainer)")
	startCmd.Flags().String("topic", "", "Topic (modes exam_topic, trainer_topic)")
	startCmd.Flags().Int("part", 1, "Page of the topic pool (mode exam_topic)")
}
