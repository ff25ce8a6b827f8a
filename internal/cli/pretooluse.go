package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillgate/skillgate/internal/hook"
	"github.com/skillgate/skillgate/internal/model"
)

func preToolUseCmd() *cobra.Command {
	var toolJSON string
	cmd := &cobra.Command{
		Use:   "pre-tool-use",
		Short: "Evaluate a tool invocation against the active session's policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreToolUse(cmd, toolJSON)
		},
	}
	cmd.Flags().StringVar(&toolJSON, "tool", "", "tool invocation JSON ({tool, input})")
	return cmd
}

func runPreToolUse(cmd *cobra.Command, toolJSON string) error {
	if toolJSON == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "pre-tool-use: --tool is required")
		return fmt.Errorf("missing --tool")
	}
	var inv model.ToolInvocation
	if err := json.Unmarshal([]byte(toolJSON), &inv); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "pre-tool-use: invalid --tool JSON: %v\n", err)
		return err
	}

	app, err := newApp(skillsPath, profilesPath, workspace)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "pre-tool-use: %v\n", err)
		return err
	}

	decision, err := app.hookEngine.Decide(cmd.Context(), hook.Input{Invocation: inv})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "pre-tool-use: %v\n", err)
		return err
	}

	switch decision.Verdict {
	case hook.VerdictBlock:
		fmt.Fprintf(cmd.ErrOrStderr(), "DENIED: %s\n", decision.Reason)
		if decision.UnmetCapability != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "  unmet capability: %s\n", decision.UnmetCapability)
		}
		if decision.NextSkill != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "  next skill: %s\n", decision.NextSkill)
		}
		if decision.HowToProceed != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "  how to proceed: %s\n", decision.HowToProceed)
		}
		return fmt.Errorf("denied: %s", decision.Reason)
	case hook.VerdictWarn:
		fmt.Fprintf(cmd.OutOrStdout(), "ADVISORY: %s\n", decision.Reason)
		if decision.HowToProceed != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  how to proceed: %s\n", decision.HowToProceed)
		}
		return nil
	default:
		fmt.Fprintln(cmd.OutOrStdout(), "allowed")
		if decision.CurrentSkill != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  current skill: %s\n", decision.CurrentSkill)
		}
		if decision.NextCapability != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  next capability: %s\n", decision.NextCapability)
		}
		if decision.Progress != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  progress: %s\n", decision.Progress)
		}
		return nil
	}
}
