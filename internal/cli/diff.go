package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hookgate/internal/rulediff"
	"github.com/ppiankov/hookgate/internal/rules"
)

var diffFormat string

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text", "Output format (text|json)")
}

var diffCmd = &cobra.Command{
	Use:   "diff <old.yaml> <new.yaml>",
	Short: "Compare two rules files and show changes",
	Long:  "Loads two rules files and shows the patterns added, removed, changed or\nreordered in each table. Order matters: the first matching rule decides.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	oldSet, err := rules.Load(args[0])
	if err != nil {
		return fmt.Errorf("load old rules: %w", err)
	}
	newSet, err := rules.Load(args[1])
	if err != nil {
		return fmt.Errorf("load new rules: %w", err)
	}

	result := rulediff.Diff(oldSet, newSet)
	result.OldPath = args[0]
	result.NewPath = args[1]

	out := cmd.OutOrStdout()
	switch diffFormat {
	case "json":
		data, err := rulediff.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, data)
	default:
		fmt.Fprint(out, rulediff.FormatText(result))
	}
	return nil
}
