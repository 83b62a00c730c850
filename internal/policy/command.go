// Package policy renders allow/block decisions for proposed commands and file
// accesses. It is a syntactic matcher: no shell parsing, no path resolution.
package policy

import (
	"fmt"

	"github.com/ppiankov/hookgate/internal/model"
	"github.com/ppiankov/hookgate/internal/rules"
)

// CommandEngine evaluates command text against the dangerous-command table.
type CommandEngine struct {
	table rules.Table
}

// NewCommandEngine creates an engine over a compiled command table.
func NewCommandEngine(t rules.Table) *CommandEngine {
	return &CommandEngine{table: t}
}

// Evaluate returns Block for the first rule whose pattern occurs anywhere in
// the command, Allow otherwise. The empty command never matches.
func (e *CommandEngine) Evaluate(command string) model.Decision {
	if command == "" {
		return model.Allowed()
	}
	r := e.table.FirstMatch(command)
	if r == nil {
		return model.Allowed()
	}
	return model.Blocked(
		fmt.Sprintf("blocked dangerous command: %s (pattern: %s)", r.Description, r.Pattern()),
		r.Ref(),
	)
}
