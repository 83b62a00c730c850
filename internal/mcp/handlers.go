package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/hookgate/internal/completion"
	"github.com/ppiankov/hookgate/internal/gate"
	"github.com/ppiankov/hookgate/internal/model"
)

// CheckCommandInput defines parameters for hookgate_check_command.
type CheckCommandInput struct {
	Command string `json:"command" jsonschema:"shell command to check"`
}

// CheckFileInput defines parameters for hookgate_check_file.
type CheckFileInput struct {
	Path      string `json:"path" jsonschema:"file path to check"`
	Operation string `json:"operation,omitempty" jsonschema:"read, write or edit (default read)"`
}

// NewFileInput defines parameters for hookgate_validate_new_file.
type NewFileInput struct {
	Dir    string `json:"dir" jsonschema:"directory to scan, relative to the project root"`
	Ext    string `json:"ext,omitempty" jsonschema:"file extension filter such as .md"`
	MaxAge string `json:"max_age,omitempty" jsonschema:"how recent the file must be, e.g. 5m (default 5m)"`
}

// FileContainsInput defines parameters for hookgate_validate_file_contains.
type FileContainsInput struct {
	Dir      string   `json:"dir" jsonschema:"directory to scan, relative to the project root"`
	Ext      string   `json:"ext,omitempty" jsonschema:"file extension filter such as .md"`
	MaxAge   string   `json:"max_age,omitempty" jsonschema:"how recent the file must be (default 5m)"`
	Required []string `json:"required" jsonschema:"substrings the file must contain"`
}

// SetupInput defines parameters for hookgate_validate_setup.
type SetupInput struct {
	Dir string `json:"dir,omitempty" jsonschema:"project directory (default: project root)"`
}

// DecisionOutput is returned by every tool.
type DecisionOutput struct {
	Verdict string            `json:"verdict"`
	Reason  string            `json:"reason,omitempty"`
	Message string            `json:"message,omitempty"`
	Rule    string            `json:"rule,omitempty"`
	Steps   []completion.Step `json:"steps,omitempty"`
}

// defaultMaxAge applies when a validation tool is called without max_age.
const defaultMaxAge = 5 * time.Minute

func (s *Server) handleCheckCommand(ctx context.Context, _ *mcpsdk.CallToolRequest, input CheckCommandInput) (*mcpsdk.CallToolResult, DecisionOutput, error) {
	return s.evaluate(ctx, model.ActionRequest{
		Kind:    model.KindCommand,
		Tool:    "Bash",
		Command: input.Command,
	})
}

func (s *Server) handleCheckFile(ctx context.Context, _ *mcpsdk.CallToolRequest, input CheckFileInput) (*mcpsdk.CallToolResult, DecisionOutput, error) {
	op := model.OpRead
	if input.Operation != "" {
		var ok bool
		if op, ok = model.FileOpForTool(input.Operation); !ok {
			return nil, DecisionOutput{}, fmt.Errorf("unknown operation %q (want read, write or edit)", input.Operation)
		}
	}
	return s.evaluate(ctx, model.ActionRequest{
		Kind:      model.KindFileAccess,
		Path:      input.Path,
		Operation: op,
	})
}

func (s *Server) handleValidateNewFile(ctx context.Context, _ *mcpsdk.CallToolRequest, input NewFileInput) (*mcpsdk.CallToolResult, DecisionOutput, error) {
	maxAge, err := parseMaxAge(input.MaxAge)
	if err != nil {
		return nil, DecisionOutput{}, err
	}
	return s.evaluate(ctx, model.ActionRequest{
		Kind: model.KindCompletion,
		Completion: &model.CompletionSpec{
			Check:  model.CheckNewFile,
			Dir:    input.Dir,
			Ext:    input.Ext,
			MaxAge: maxAge,
		},
	})
}

func (s *Server) handleValidateFileContains(ctx context.Context, _ *mcpsdk.CallToolRequest, input FileContainsInput) (*mcpsdk.CallToolResult, DecisionOutput, error) {
	maxAge, err := parseMaxAge(input.MaxAge)
	if err != nil {
		return nil, DecisionOutput{}, err
	}
	return s.evaluate(ctx, model.ActionRequest{
		Kind: model.KindCompletion,
		Completion: &model.CompletionSpec{
			Check:    model.CheckFileContains,
			Dir:      input.Dir,
			Ext:      input.Ext,
			MaxAge:   maxAge,
			Required: input.Required,
		},
	})
}

func (s *Server) handleValidateSetup(ctx context.Context, _ *mcpsdk.CallToolRequest, input SetupInput) (*mcpsdk.CallToolResult, DecisionOutput, error) {
	return s.evaluate(ctx, model.ActionRequest{
		Kind:       model.KindCompletion,
		Completion: &model.CompletionSpec{Check: model.CheckSetup, Dir: input.Dir},
	})
}

// evaluate runs req through the gate. Evaluator errors (audit failure,
// unreachable server) come back in Message next to the decision they
// accompany.
func (s *Server) evaluate(ctx context.Context, req model.ActionRequest) (*mcpsdk.CallToolResult, DecisionOutput, error) {
	req.SessionID = s.sessionID
	res, err := s.eval.Evaluate(ctx, req)
	out := toOutput(res)
	if err != nil {
		out.Message = joinMessage(out.Message, err.Error())
	}
	return nil, out, nil
}

func toOutput(res gate.Result) DecisionOutput {
	d := res.Decision
	out := DecisionOutput{
		Verdict: string(d.Verdict),
		Reason:  d.Reason,
		Message: d.Message,
		Steps:   res.Steps,
	}
	if d.Rule != nil {
		out.Rule = d.Rule.Pattern
	}
	return out
}

func parseMaxAge(s string) (time.Duration, error) {
	if s == "" {
		return defaultMaxAge, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid max_age %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("max_age must be positive, got %s", d)
	}
	return d, nil
}

func joinMessage(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
