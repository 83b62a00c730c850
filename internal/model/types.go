package model

import (
	"fmt"
	"strings"
	"time"
)

// Verdict is the outcome a gate reports back to the host.
type Verdict string

const (
	Allow    Verdict = "allow"
	Block    Verdict = "block"
	Continue Verdict = "continue"
)

// ActionKind identifies which gate an ActionRequest is routed to.
type ActionKind string

const (
	KindCommand    ActionKind = "command"
	KindFileAccess ActionKind = "file_access"
	KindCompletion ActionKind = "completion"
	KindLint       ActionKind = "lint"
	KindPrompt     ActionKind = "prompt"
	KindTool       ActionKind = "tool" // any other tool use: allowed, still audited
)

// FileOp is the operation attempted on a file. It only shapes reason strings.
type FileOp string

const (
	OpRead  FileOp = "read"
	OpWrite FileOp = "write"
	OpEdit  FileOp = "edit"
)

// FileOpForTool maps a host tool name (Read, Write, Edit, MultiEdit) to a FileOp.
// The second return is false for tools that do not touch files.
func FileOpForTool(tool string) (FileOp, bool) {
	switch strings.ToLower(tool) {
	case "read":
		return OpRead, true
	case "write":
		return OpWrite, true
	case "edit", "multiedit":
		return OpEdit, true
	default:
		return "", false
	}
}

// Category tags a rule with the kind of payload it applies to.
type Category string

const (
	CategoryCommand Category = "command"
	CategoryPath    Category = "path"
)

// CompletionCheck names one of the independently invocable stop checks.
type CompletionCheck string

const (
	CheckNewestFile   CompletionCheck = "newest_file"
	CheckNewFile      CompletionCheck = "new_file"
	CheckFileContains CompletionCheck = "file_contains"
	CheckSetup        CompletionCheck = "setup"
)

// CompletionSpec is the payload of a completion request.
type CompletionSpec struct {
	Check    CompletionCheck `json:"check"`
	Dir      string          `json:"dir"`
	Ext      string          `json:"ext,omitempty"`
	MaxAge   time.Duration   `json:"max_age,omitempty"`
	Required []string        `json:"required,omitempty"`
}

// ActionRequest is one proposed action. Constructed per invocation, never mutated.
type ActionRequest struct {
	Kind       ActionKind      `json:"kind"`
	SessionID  string          `json:"session_id,omitempty"`
	Tool       string          `json:"tool,omitempty"`
	Command    string          `json:"command,omitempty"`
	Path       string          `json:"path,omitempty"`
	Operation  FileOp          `json:"operation,omitempty"`
	Completion *CompletionSpec `json:"completion,omitempty"`
	Prompt     string          `json:"prompt,omitempty"`

	// Malformed is set when the host payload could not be parsed and the
	// request was defaulted.
	Malformed bool `json:"malformed,omitempty"`
}

// Resource returns the kind-specific payload as a single string for audit records.
func (r *ActionRequest) Resource() string {
	switch r.Kind {
	case KindCommand:
		return r.Command
	case KindFileAccess, KindLint:
		return r.Path
	case KindCompletion:
		if r.Completion == nil {
			return ""
		}
		c := r.Completion
		s := fmt.Sprintf("%s dir=%s", c.Check, c.Dir)
		if c.Ext != "" {
			s += " ext=" + c.Ext
		}
		if c.MaxAge > 0 {
			s += " max_age=" + c.MaxAge.String()
		}
		return s
	case KindPrompt:
		return r.Prompt
	case KindTool:
		return r.Tool
	default:
		return ""
	}
}

// RuleRef identifies the rule that produced a Block.
type RuleRef struct {
	Pattern     string   `json:"pattern"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
}

// Decision is the result of exactly one gate evaluation.
// Block always carries a Reason; Allow never does.
type Decision struct {
	Verdict Verdict  `json:"verdict"`
	Reason  string   `json:"reason,omitempty"`
	Message string   `json:"message,omitempty"`
	Rule    *RuleRef `json:"rule,omitempty"`
}

// Allowed returns an Allow decision.
func Allowed() Decision {
	return Decision{Verdict: Allow}
}

// Blocked returns a Block decision. rule may be nil for evidence failures.
func Blocked(reason string, rule *RuleRef) Decision {
	return Decision{Verdict: Block, Reason: reason, Rule: rule}
}

// Continued returns a Continue decision with an informational message.
func Continued(message string) Decision {
	return Decision{Verdict: Continue, Message: message}
}

// IsBlock reports whether the decision refuses the action.
func (d Decision) IsBlock() bool {
	return d.Verdict == Block
}
