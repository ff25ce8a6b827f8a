package cli

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func activateCmd() *cobra.Command {
	var requestID string
	cmd := &cobra.Command{
		Use:   "activate <profile>",
		Short: "Resolve and activate a named profile's capability chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivate(cmd, args[0], requestID)
		},
	}
	cmd.Flags().StringVar(&requestID, "request-id", "", "idempotency key for this activation request (default: a fresh UUID)")
	return cmd
}

func runActivate(cmd *cobra.Command, profileName, requestID string) error {
	if requestID == "" {
		requestID = uuid.NewString()
	}

	app, err := newApp(skillsPath, profilesPath, workspace)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "activate: %v\n", err)
		return err
	}

	state, err := app.activator.Activate(cmd.Context(), requestID, profileName)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "activate: %v\n", err)
		return err
	}

	out, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "activate: encode session: %v\n", err)
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
