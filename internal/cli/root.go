package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	rootDir    string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "hookgate",
	Short: "Policy gate for coding-agent hooks",
	Long: "Decides whether an agent may run a command, touch a file, or claim a task is done.\n" +
		"Every decision is appended to a hash-chained audit log.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Project root (default: nearest directory holding .hookgate/)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default: <root>/.hookgate/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
