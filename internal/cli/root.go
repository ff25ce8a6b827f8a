package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	skillsPath   string
	profilesPath string
	workspace    string
)

var rootCmd = &cobra.Command{
	Use:           "skillgate",
	Short:         "Workflow-enforcement control plane for an LLM coding agent",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&skillsPath, "skills", "skills.yaml", "path to skills.yaml")
	rootCmd.PersistentFlags().StringVar(&profilesPath, "profiles", "profiles.yaml", "path to profiles.yaml")
	rootCmd.PersistentFlags().StringVar(&workspace, "workspace", defaultWorkspace(), "workspace root (session files live under <workspace>/.skillgate)")

	rootCmd.AddCommand(preToolUseCmd())
	rootCmd.AddCommand(stopCmd())
	rootCmd.AddCommand(activateCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(nextCmd())
	rootCmd.AddCommand(routeCmd())
}

// Execute runs the root cobra command and exits with status 1 on any error,
// matching spec.md §6's hook command surface (every command's error path
// exits 1, its success path exits 0).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
