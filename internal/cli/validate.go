package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hookgate/internal/completion"
	"github.com/ppiankov/hookgate/internal/gate"
	"github.com/ppiankov/hookgate/internal/hook"
	"github.com/ppiankov/hookgate/internal/model"
)

var (
	validateCheck    string
	validateDir      string
	validateExt      string
	validateMaxAge   time.Duration
	validateRequired []string
	validateJSON     bool
)

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateCheck, "check", string(model.CheckNewestFile), "Check to run (newest_file|new_file|file_contains|setup)")
	validateCmd.Flags().StringVar(&validateDir, "dir", "", "Directory to inspect, relative to the project root")
	validateCmd.Flags().StringVar(&validateExt, "ext", "", "File extension filter (e.g. .md)")
	validateCmd.Flags().DurationVar(&validateMaxAge, "max-age", completion.DefaultMaxAge, "How recent the file must be")
	validateCmd.Flags().StringSliceVar(&validateRequired, "require", nil, "Content the newest file must contain (repeatable)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print the full result as JSON")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run a completion check from the terminal",
	Long: "Same checks as 'hook stop', without a hook payload. Prints each step.\n" +
		"The decision is audited. Exit code 2 when the check blocks.",
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	proj, err := loadProject("")
	if err != nil {
		return err
	}
	defer proj.close()

	eval, release, err := proj.evaluator("")
	if err != nil {
		return err
	}
	defer release()

	req := model.ActionRequest{
		Kind:      model.KindCompletion,
		SessionID: "cli",
		Completion: &model.CompletionSpec{
			Check:    model.CompletionCheck(validateCheck),
			Dir:      validateDir,
			Ext:      validateExt,
			MaxAge:   validateMaxAge,
			Required: validateRequired,
		},
	}
	res, err := eval.Evaluate(cmd.Context(), req)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	out := cmd.OutOrStdout()
	if validateJSON {
		data, _ := json.MarshalIndent(res, "", "  ")
		fmt.Fprintln(out, string(data))
	} else {
		printResult(out, res)
	}
	exit(hook.ExitCode(res.Decision))
	return nil
}

func printResult(w io.Writer, res gate.Result) {
	for _, s := range res.Steps {
		mark := "ok"
		if !s.OK {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "  [%-4s] %s", mark, s.Name)
		if s.Detail != "" {
			fmt.Fprintf(w, ": %s", s.Detail)
		}
		fmt.Fprintln(w)
	}
	d := res.Decision
	switch {
	case d.IsBlock():
		fmt.Fprintf(w, "%s: %s\n", d.Verdict, d.Reason)
	case d.Message != "":
		fmt.Fprintf(w, "%s: %s\n", d.Verdict, d.Message)
	default:
		fmt.Fprintln(w, d.Verdict)
	}
}
