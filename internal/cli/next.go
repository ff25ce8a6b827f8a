package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillgate/skillgate/internal/model"
)

func nextCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the next unsatisfied skill in the active session's chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNext(cmd, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit machine-readable JSON")
	return cmd
}

type nextResult struct {
	SessionID string `json:"session_id,omitempty"`
	NextSkill string `json:"next_skill,omitempty"`
	Complete  bool   `json:"complete"`
}

func runNext(cmd *cobra.Command, asJSON bool) error {
	app, err := newApp(skillsPath, profilesPath, workspace)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "next: %v\n", err)
		return err
	}

	state, err := app.store.Current(cmd.Context())
	if errors.Is(err, model.ErrSessionNotFound) {
		return emitNext(cmd, asJSON, nextResult{Complete: true})
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "next: %v\n", err)
		return err
	}

	result := nextResult{SessionID: state.SessionID}
	if state.CurrentSkillIndex >= len(state.Chain) {
		result.Complete = true
	} else {
		result.NextSkill = state.Chain[state.CurrentSkillIndex]
	}
	return emitNext(cmd, asJSON, result)
}

func emitNext(cmd *cobra.Command, asJSON bool, r nextResult) error {
	if asJSON {
		out, err := json.Marshal(r)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "next: encode: %v\n", err)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}
	if r.Complete {
		fmt.Fprintln(cmd.OutOrStdout(), "chain complete")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), r.NextSkill)
	}
	return nil
}
