package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "plannerd",
		Short: "plannerd - tasks with prerequisites and recurring reminders",
		Long: `plannerd keeps a local list of tasks with prerequisites and fires recurring reminders.

Without a subcommand it opens the terminal UI. Use "plannerd run" to fire reminders in the background.`,
		RunE:          runTUI,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $PLANNERD_CONFIG)")
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tickCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(blockedCmd)
	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
