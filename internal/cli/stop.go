package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skillgate/skillgate/internal/hook"
)

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Evaluate whether the active session's completion requirements are met",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd)
		},
	}
}

func runStop(cmd *cobra.Command) error {
	app, err := newApp(skillsPath, profilesPath, workspace)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "stop: %v\n", err)
		return err
	}

	decision, err := app.stopEngine.Decide(cmd.Context(), hook.StopInput{})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "stop: %v\n", err)
		return err
	}

	switch decision.Verdict {
	case hook.VerdictBlock:
		fmt.Fprintf(cmd.ErrOrStderr(), "DENIED: missing completion requirements: %s\n", strings.Join(decision.Outstanding, ", "))
		return fmt.Errorf("missing completion requirements")
	case hook.VerdictWarn:
		fmt.Fprintf(cmd.OutOrStdout(), "ADVISORY: missing completion requirements: %s\n", strings.Join(decision.Outstanding, ", "))
		return nil
	default:
		fmt.Fprintln(cmd.OutOrStdout(), "allowed")
		return nil
	}
}
