package evidence

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultGitTimeout bounds a single status query.
const DefaultGitTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when the status query exceeds its timeout.
	ErrTimeout = errors.New("evidence: git status timed out")
	// ErrNotInstalled is returned when the git binary cannot be found.
	ErrNotInstalled = errors.New("evidence: git not installed")
)

// GitStatus queries `git status --porcelain` as a black-box text source.
type GitStatus struct {
	// WorkDir is where git runs. Empty means the current directory.
	WorkDir string
	// Timeout bounds the query. Zero means DefaultGitTimeout.
	Timeout time.Duration
	// Bin overrides the git binary, for tests.
	Bin string
}

// Status runs the query scoped to dir and parses its output. Paths are
// reported in the same namespace as DirScanner{Root: WorkDir}, not relative
// to the repository top level.
func (g GitStatus) Status(ctx context.Context, dir string) ([]StatusEntry, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultGitTimeout
	}
	bin := g.Bin
	if bin == "" {
		bin = "git"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := g.run(ctx, bin, "status", "--porcelain", "--untracked-files=all", "--", dir)
	if err != nil {
		return nil, gitError(ctx, "git status", timeout, err)
	}
	entries := ParseStatus(out)
	if len(entries) == 0 {
		return entries, nil
	}

	top, err := g.run(ctx, bin, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, gitError(ctx, "git rev-parse", timeout, err)
	}
	if err := g.rebase(entries, strings.TrimSpace(string(top)), dir); err != nil {
		return nil, err
	}
	return entries, nil
}

func (g GitStatus) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = g.WorkDir
	cmd.WaitDelay = time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

func gitError(ctx context.Context, what string, timeout time.Duration, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return ErrNotInstalled
	}
	return fmt.Errorf("evidence: %s: %w", what, err)
}

// rebase rewrites repository-relative paths the way DirScanner reports them:
// relative to WorkDir for a relative dir, under dir itself for an absolute one.
func (g GitStatus) rebase(entries []StatusEntry, top, dir string) error {
	anchor := g.WorkDir
	if filepath.IsAbs(dir) {
		anchor = dir
	}
	if anchor == "" {
		anchor = "."
	}
	resolved, err := realPath(anchor)
	if err != nil {
		return fmt.Errorf("evidence: resolve %s: %w", anchor, err)
	}
	for i := range entries {
		rel, err := filepath.Rel(resolved, filepath.Join(top, filepath.FromSlash(entries[i].Path)))
		if err != nil {
			return fmt.Errorf("evidence: relocate %s: %w", entries[i].Path, err)
		}
		if filepath.IsAbs(dir) {
			rel = filepath.Join(dir, rel)
		}
		entries[i].Path = rel
	}
	return nil
}

// realPath matches git, which reports the top level with symlinks resolved.
func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		return r, nil
	}
	return abs, nil
}

// ParseStatus parses porcelain v1 output: a two-character status code, a
// space, then the path. Renames keep the destination path.
func ParseStatus(out []byte) []StatusEntry {
	var entries []StatusEntry
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		path := strings.TrimSpace(line[3:])
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+len(" -> "):]
		}
		path = unquote(path)
		if path == "" {
			continue
		}
		entries = append(entries, StatusEntry{Path: path, Code: code})
	}
	return entries
}

// unquote undoes git's C-style quoting of paths with special characters.
func unquote(p string) string {
	if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
		if s, err := strconv.Unquote(p); err == nil {
			return s
		}
	}
	return p
}

// IsRepo reports whether dir is inside a git work tree. A missing git binary
// or a timeout is returned as an error, not as false.
func (g GitStatus) IsRepo(ctx context.Context, dir string) (bool, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultGitTimeout
	}
	bin := g.Bin
	if bin == "" {
		bin = "git"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "rev-parse", "--git-dir")
	cmd.Dir = dir
	cmd.WaitDelay = time.Second
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return false, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return false, ErrNotInstalled
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("evidence: git rev-parse: %w", err)
}
