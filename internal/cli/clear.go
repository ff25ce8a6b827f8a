package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func clearCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the active session pointer for this workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(cmd, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm clearing the active session")
	return cmd
}

func runClear(cmd *cobra.Command, force bool) error {
	if !force {
		fmt.Fprintln(cmd.ErrOrStderr(), "clear: confirmation required: refusing to clear without --force")
		return fmt.Errorf("confirmation required")
	}

	app, err := newApp(skillsPath, profilesPath, workspace)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "clear: %v\n", err)
		return err
	}

	if err := app.store.Clear(cmd.Context()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "clear: %v\n", err)
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "cleared")
	return nil
}
