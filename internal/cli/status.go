package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillgate/skillgate/internal/model"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the active session's state, if any",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	app, err := newApp(skillsPath, profilesPath, workspace)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "status: %v\n", err)
		return err
	}

	state, err := app.store.Current(cmd.Context())
	if errors.Is(err, model.ErrSessionNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "no active session")
		return nil
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "status: %v\n", err)
		return err
	}

	out, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "status: encode session: %v\n", err)
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
