// Package hook speaks the agent host's hook protocol: one JSON object on
// stdin, one JSON object on stdout.
package hook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/hookgate/internal/model"
)

// Event names as sent in hook_event_name.
const (
	EventPreToolUse       = "PreToolUse"
	EventPostToolUse      = "PostToolUse"
	EventStop             = "Stop"
	EventSubagentStop     = "SubagentStop"
	EventUserPromptSubmit = "UserPromptSubmit"
)

// ErrEmpty is returned when stdin carried no payload at all.
var ErrEmpty = errors.New("hook: empty payload")

const maxPayload = 8 << 20

// ToolInput holds the tool arguments the gate inspects.
type ToolInput struct {
	Command  string `json:"command,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	// NotebookPath is what notebook tools send instead of file_path.
	NotebookPath string `json:"notebook_path,omitempty"`
}

// Payload is the object the host writes to stdin.
type Payload struct {
	SessionID     string    `json:"session_id"`
	Cwd           string    `json:"cwd,omitempty"`
	HookEventName string    `json:"hook_event_name,omitempty"`
	ToolName      string    `json:"tool_name,omitempty"`
	ToolInput     ToolInput `json:"tool_input"`
	Prompt        string    `json:"prompt,omitempty"`
}

// Read decodes one payload. Any error means the caller should build a
// malformed request and let the fail mode decide.
func Read(r io.Reader) (Payload, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxPayload))
	if err != nil {
		return Payload{}, fmt.Errorf("hook: read stdin: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Payload{}, ErrEmpty
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("hook: parse payload: %w", err)
	}
	return p, nil
}

// Path returns the file the tool targets.
func (p Payload) Path() string {
	if p.ToolInput.FilePath != "" {
		return p.ToolInput.FilePath
	}
	return p.ToolInput.NotebookPath
}

// ToolRequest classifies a tool call: the shell tool becomes a command
// request, file tools become file requests, anything else a tool request.
func (p Payload) ToolRequest() model.ActionRequest {
	req := model.ActionRequest{SessionID: p.SessionID, Tool: p.ToolName}
	if strings.EqualFold(p.ToolName, "Bash") {
		req.Kind = model.KindCommand
		req.Command = p.ToolInput.Command
		return req
	}
	if op, ok := model.FileOpForTool(p.ToolName); ok {
		req.Kind = model.KindFileAccess
		req.Path = p.Path()
		req.Operation = op
		return req
	}
	req.Kind = model.KindTool
	return req
}

// LintRequest targets the file a write or edit just touched. The second
// return is false for tools that do not modify files.
func (p Payload) LintRequest() (model.ActionRequest, bool) {
	op, ok := model.FileOpForTool(p.ToolName)
	if !ok || op == model.OpRead {
		return model.ActionRequest{}, false
	}
	return model.ActionRequest{
		Kind:      model.KindLint,
		SessionID: p.SessionID,
		Tool:      p.ToolName,
		Path:      p.Path(),
		Operation: op,
	}, true
}

// PromptRequest records a submitted prompt.
func (p Payload) PromptRequest() model.ActionRequest {
	return model.ActionRequest{Kind: model.KindPrompt, SessionID: p.SessionID, Prompt: p.Prompt}
}

// Malformed builds the empty request used when the payload could not be read.
func Malformed(kind model.ActionKind) model.ActionRequest {
	return model.ActionRequest{Kind: kind, Malformed: true}
}
