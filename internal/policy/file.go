package policy

import (
	"fmt"

	"github.com/ppiankov/hookgate/internal/model"
	"github.com/ppiankov/hookgate/internal/rules"
)

// FileEngine evaluates file paths against the allow list and the protected list.
type FileEngine struct {
	allowed   rules.Table
	protected rules.Table
}

// NewFileEngine creates an engine over compiled path tables.
func NewFileEngine(allowed, protected rules.Table) *FileEngine {
	return &FileEngine{allowed: allowed, protected: protected}
}

// Evaluate decides whether op on path may proceed.
//
// Precedence (must not be changed):
//  1. allow list match → Allow, block list is not consulted
//  2. block list match → Block
//  3. otherwise → Allow
//
// op only appears in the reason string.
func (e *FileEngine) Evaluate(path string, op model.FileOp) model.Decision {
	if path == "" {
		return model.Allowed()
	}
	if e.allowed.FirstMatch(path) != nil {
		return model.Allowed()
	}
	r := e.protected.FirstMatch(path)
	if r == nil {
		return model.Allowed()
	}
	if op == "" {
		op = model.OpRead
	}
	return model.Blocked(
		fmt.Sprintf("blocked %s access to protected file: %s (%s)", op, path, r.Description),
		r.Ref(),
	)
}
