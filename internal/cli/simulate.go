package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hookgate/internal/sim"
)

var (
	simRules  string
	simLog    string
	simFormat string
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simRules, "rules", "", "Path to candidate rules YAML (required)")
	simulateCmd.Flags().StringVar(&simLog, "log", "", "Path to audit log (default: project audit log)")
	simulateCmd.Flags().StringVarP(&simFormat, "format", "f", "text", "Output format (text|json)")
	simulateCmd.MarkFlagRequired("rules")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay the audit log against candidate rules and show verdict changes",
	Long: "Reads the recorded audit log, re-evaluates each command and file action\n" +
		"against an alternate rules file, and shows which verdicts would change.\n\n" +
		"Use this to preview rule edits before installing them.",
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	logPath := simLog
	if logPath == "" {
		proj, err := loadProject("")
		if err != nil {
			return err
		}
		proj.close()
		logPath = proj.cfg.AuditLog
	}

	result, err := sim.Simulate(logPath, simRules)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch simFormat {
	case "json":
		data, err := sim.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, data)
	default:
		fmt.Fprint(out, sim.FormatText(result))
	}
	return nil
}
