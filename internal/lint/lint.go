// Package lint runs an external linter on a file the agent just wrote and
// turns its diagnostics into a block the agent can act on.
package lint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/hookgate/internal/model"
)

// DefaultTimeout bounds a single linter run.
const DefaultTimeout = 30 * time.Second

// FilePlaceholder in Config.Command is replaced with the file path. When the
// command has no placeholder the path is appended.
const FilePlaceholder = "{file}"

// Config selects the linter and the files it applies to.
type Config struct {
	Command    []string      `yaml:"command"`
	Extensions []string      `yaml:"extensions"`
	Timeout    time.Duration `yaml:"timeout"`
}

// DefaultConfig runs ruff on Python files.
func DefaultConfig() Config {
	return Config{
		Command:    []string{"ruff", "check", FilePlaceholder, "--output-format", "text"},
		Extensions: []string{".py"},
		Timeout:    DefaultTimeout,
	}
}

// Status is the outcome of one check.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"  // linter reported diagnostics
	StatusSkipped Status = "skipped" // not applicable, file gone, or linter missing
	StatusError   Status = "error"   // timeout or linter crash; never a block
)

// Result carries the decision plus what happened.
type Result struct {
	Status      Status
	Decision    model.Decision
	Diagnostics string
	Detail      string
}

// Runner checks files with the configured linter.
type Runner struct {
	cfg Config
}

// NewRunner fills zero fields of cfg from DefaultConfig.
func NewRunner(cfg Config) *Runner {
	def := DefaultConfig()
	if len(cfg.Command) == 0 {
		cfg.Command = def.Command
	}
	if cfg.Extensions == nil {
		cfg.Extensions = def.Extensions
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Runner{cfg: cfg}
}

// Applies reports whether path has a configured extension.
func (r *Runner) Applies(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range r.cfg.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// Check lints path. Only diagnostics on a non-zero exit block.
func (r *Runner) Check(ctx context.Context, path string) Result {
	if path == "" || !r.Applies(path) {
		return skipped("not a linted file type")
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return skipped("file does not exist")
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	args := r.args(path)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	switch {
	case err == nil:
		return Result{Status: StatusPassed, Decision: model.Allowed()}
	case ctx.Err() == context.DeadlineExceeded:
		return Result{
			Status:   StatusError,
			Decision: model.Allowed(),
			Detail:   fmt.Sprintf("%s timed out after %s", args[0], r.cfg.Timeout),
		}
	case errors.Is(err, exec.ErrNotFound):
		return skipped(args[0] + " not installed")
	}

	var exitErr *exec.ExitError
	issues := strings.TrimSpace(stdout.String())
	if !errors.As(err, &exitErr) || issues == "" {
		return Result{
			Status:   StatusError,
			Decision: model.Allowed(),
			Detail:   fmt.Sprintf("%s failed: %v: %s", args[0], err, strings.TrimSpace(stderr.String())),
		}
	}
	return Result{
		Status:      StatusFailed,
		Decision:    model.Blocked(fmt.Sprintf("lint errors found:\n%s\n\nPlease fix these issues.", issues), nil),
		Diagnostics: issues,
	}
}

func (r *Runner) args(path string) []string {
	args := make([]string, 0, len(r.cfg.Command)+1)
	replaced := false
	for _, a := range r.cfg.Command {
		if strings.Contains(a, FilePlaceholder) {
			a = strings.ReplaceAll(a, FilePlaceholder, path)
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, path)
	}
	return args
}

func skipped(detail string) Result {
	return Result{Status: StatusSkipped, Decision: model.Allowed(), Detail: detail}
}
