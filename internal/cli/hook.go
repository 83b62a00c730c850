package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hookgate/internal/completion"
	"github.com/ppiankov/hookgate/internal/diag"
	"github.com/ppiankov/hookgate/internal/hook"
	"github.com/ppiankov/hookgate/internal/model"
)

var (
	hookServer string

	stopCheck    string
	stopDir      string
	stopExt      string
	stopMaxAge   time.Duration
	stopRequired []string
)

func init() {
	rootCmd.AddCommand(hookCmd)
	hookCmd.PersistentFlags().StringVar(&hookServer, "server", "", "Forward to a hookgate server at host:port instead of evaluating locally")

	hookCmd.AddCommand(preToolUseCmd, postToolUseCmd, stopCmd, userPromptSubmitCmd)

	stopCmd.Flags().StringVar(&stopCheck, "check", string(model.CheckNewestFile), "Check to run (newest_file|new_file|file_contains|setup)")
	stopCmd.Flags().StringVar(&stopDir, "dir", "", "Directory to inspect, relative to the project root")
	stopCmd.Flags().StringVar(&stopExt, "ext", "", "File extension filter (e.g. .md)")
	stopCmd.Flags().DurationVar(&stopMaxAge, "max-age", completion.DefaultMaxAge, "How recent the file must be")
	stopCmd.Flags().StringSliceVar(&stopRequired, "require", nil, "Content the newest file must contain (repeatable)")
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Agent host hook entry points",
	Long: "Each subcommand reads one hook payload from stdin and writes one decision to stdout.\n" +
		"Exit code 0 allows, 2 blocks, 1 reports an internal error.",
}

var preToolUseCmd = &cobra.Command{
	Use:   "pre-tool-use",
	Short: "Gate a tool call before it runs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exit(runHook(cmd.Context(), hookIO{cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()}, hookServer, preToolRequest, hook.WriteTool))
	},
}

var postToolUseCmd = &cobra.Command{
	Use:   "post-tool-use",
	Short: "Lint a file after a write or edit",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exit(runHook(cmd.Context(), hookIO{cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()}, hookServer, postToolRequest, hook.WriteTool))
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Require evidence before the agent stops",
	Long: "Runs one completion check. Continue lets the agent stop; block sends it back\n" +
		"with the reason.\n\n" +
		"  hookgate hook stop --check newest_file --dir specs --ext .md --max-age 5m\n" +
		"  hookgate hook stop --check file_contains --dir specs --ext .md --require Requirements --require Timeline\n" +
		"  hookgate hook stop --check setup",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		spec := model.CompletionSpec{
			Check:    model.CompletionCheck(stopCheck),
			Dir:      stopDir,
			Ext:      stopExt,
			MaxAge:   stopMaxAge,
			Required: stopRequired,
		}
		exit(runHook(cmd.Context(), hookIO{cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()}, hookServer, stopRequest(spec), hook.WriteStop))
	},
}

var userPromptSubmitCmd = &cobra.Command{
	Use:   "user-prompt-submit",
	Short: "Record a submitted prompt in the session history",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exit(runHook(cmd.Context(), hookIO{cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()}, hookServer, promptRequest, hook.WriteTool))
	},
}

type hookIO struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// requestBuilder turns a payload (or the error reading it) into a request.
// ok=false means the event needs no decision and the hook allows silently.
type requestBuilder func(p hook.Payload, readErr error) (req model.ActionRequest, ok bool)

func preToolRequest(p hook.Payload, readErr error) (model.ActionRequest, bool) {
	if readErr != nil {
		return hook.Malformed(model.KindTool), true
	}
	return p.ToolRequest(), true
}

func postToolRequest(p hook.Payload, readErr error) (model.ActionRequest, bool) {
	if readErr != nil {
		return hook.Malformed(model.KindLint), true
	}
	return p.LintRequest()
}

func promptRequest(p hook.Payload, readErr error) (model.ActionRequest, bool) {
	if readErr != nil {
		return hook.Malformed(model.KindPrompt), true
	}
	return p.PromptRequest(), true
}

// stopRequest builds the check from flags. The payload only contributes the
// session id, so an empty stdin is fine; unparsable stdin is malformed.
func stopRequest(spec model.CompletionSpec) requestBuilder {
	return func(p hook.Payload, readErr error) (model.ActionRequest, bool) {
		req := model.ActionRequest{
			Kind:       model.KindCompletion,
			SessionID:  p.SessionID,
			Completion: &spec,
		}
		if readErr != nil && !errors.Is(readErr, hook.ErrEmpty) {
			req.Malformed = true
		}
		return req, true
	}
}

// runHook reads a payload, evaluates it and writes the response. It returns
// the process exit code.
func runHook(ctx context.Context, hio hookIO, server string, build requestBuilder, write func(io.Writer, model.Decision) error) int {
	if ctx == nil {
		ctx = context.Background()
	}
	payload, readErr := hook.Read(hio.in)
	req, ok := build(payload, readErr)

	proj, err := loadProject(payload.Cwd)
	if err != nil {
		fmt.Fprintf(hio.errOut, "hookgate: %v\n", err)
		return hook.ExitError
	}
	defer proj.close()

	if readErr != nil && !errors.Is(readErr, hook.ErrEmpty) {
		proj.log.Warn("malformed hook payload", diag.Fields{"error": readErr, "fail_mode": proj.cfg.FailMode})
	}
	if !ok {
		if err := write(hio.out, model.Allowed()); err != nil {
			fmt.Fprintf(hio.errOut, "hookgate: %v\n", err)
			return hook.ExitError
		}
		return hook.ExitOK
	}

	var d model.Decision
	eval, release, err := proj.evaluator(server)
	if err != nil {
		d = proj.failMode().Unavailable(err)
		proj.log.Error("gate unavailable", diag.Fields{"error": err})
		fmt.Fprintf(hio.errOut, "hookgate: %v\n", err)
		if auditErr := proj.recordUnavailable(req, d, err); auditErr != nil {
			proj.log.Error("unavailable decision not audited", diag.Fields{"error": auditErr})
			fmt.Fprintf(hio.errOut, "hookgate: audit: %v\n", auditErr)
		}
	} else {
		defer release()
		res, err := eval.Evaluate(ctx, req)
		if err != nil {
			proj.log.Error("evaluation incomplete", diag.Fields{"error": err, "kind": string(req.Kind)})
			fmt.Fprintf(hio.errOut, "hookgate: %v\n", err)
		}
		d = res.Decision
	}

	if err := write(hio.out, d); err != nil {
		fmt.Fprintf(hio.errOut, "hookgate: %v\n", err)
		return hook.ExitError
	}
	if d.IsBlock() {
		fmt.Fprintln(hio.errOut, d.Reason)
	}
	return hook.ExitCode(d)
}

func exit(code int) {
	if code != hook.ExitOK {
		os.Exit(code)
	}
}
