package hook

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ppiankov/hookgate/internal/model"
)

// Exit codes for hook subcommands. Hosts treat 2 as a refusal.
const (
	ExitOK    = 0
	ExitError = 1
	ExitBlock = 2
)

type toolResponse struct {
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type stopResponse struct {
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// WriteTool writes a tool-use response: {} on allow, a block object otherwise.
func WriteTool(w io.Writer, d model.Decision) error {
	resp := toolResponse{}
	if d.IsBlock() {
		resp = toolResponse{Decision: string(model.Block), Reason: d.Reason}
	}
	return write(w, resp)
}

// WriteStop writes a completion-check response.
func WriteStop(w io.Writer, d model.Decision) error {
	resp := stopResponse{Result: string(model.Continue), Message: d.Message}
	if d.IsBlock() {
		resp = stopResponse{Result: string(model.Block), Reason: d.Reason}
	}
	return write(w, resp)
}

// ExitCode maps a decision to the process exit status.
func ExitCode(d model.Decision) int {
	if d.IsBlock() {
		return ExitBlock
	}
	return ExitOK
}

func write(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("hook: marshal response: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return fmt.Errorf("hook: write response: %w", err)
	}
	return nil
}
