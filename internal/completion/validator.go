// Package completion decides whether an agent may stop: it looks for evidence
// that the unit of work actually produced output.
//
// The checks are independent (not a pipeline) and each returns continue or
// block with a message or reason the agent can act on.
package completion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/hookgate/internal/evidence"
	"github.com/ppiankov/hookgate/internal/model"
)

// DefaultMaxAge is the recency window used when a check does not specify one.
const DefaultMaxAge = 5 * time.Minute

// ErrNoRecentFile is returned by Newest when no file qualifies.
var ErrNoRecentFile = errors.New("no recent file found")

// Step records one sub-check. Failed steps do not stop the remaining steps.
type Step struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Report is a validator verdict plus the sub-checks that produced it.
type Report struct {
	Decision model.Decision `json:"decision"`
	Steps    []Step         `json:"steps,omitempty"`
}

// Validator runs completion checks against pluggable evidence sources.
type Validator struct {
	files  evidence.FileScanner
	status evidence.StatusSource
	repo   RepoProbe
	setup  SetupSpec

	now      func() time.Time
	readFile func(string) ([]byte, error)
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithReadFile overrides how file contents are read.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(v *Validator) { v.readFile = fn }
}

// WithSetup sets the checklist used by the setup check.
func WithSetup(spec SetupSpec) Option {
	return func(v *Validator) { v.setup = spec }
}

// WithRepoProbe sets how the setup check detects a version-control repository.
func WithRepoProbe(p RepoProbe) Option {
	return func(v *Validator) { v.repo = p }
}

// New creates a Validator. status may be nil, in which case NewFile relies on
// the recency scan alone.
func New(files evidence.FileScanner, status evidence.StatusSource, opts ...Option) *Validator {
	v := &Validator{
		files:    files,
		status:   status,
		setup:    DefaultSetup(),
		now:      time.Now,
		readFile: os.ReadFile,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Validate dispatches a completion request to the named check.
// An empty Dir means the current directory.
func (v *Validator) Validate(ctx context.Context, spec model.CompletionSpec) Report {
	if spec.Dir == "" {
		spec.Dir = "."
	}
	switch spec.Check {
	case model.CheckNewestFile:
		return v.NewestFile(ctx, spec.Dir, spec.Ext, spec.MaxAge)
	case model.CheckNewFile:
		return v.NewFile(ctx, spec.Dir, spec.Ext, spec.MaxAge)
	case model.CheckFileContains:
		return v.FileContains(ctx, spec.Dir, spec.Ext, spec.MaxAge, spec.Required)
	case model.CheckSetup:
		return v.Setup(ctx, spec.Dir)
	default:
		return Report{Decision: model.Blocked(fmt.Sprintf("unknown completion check %q", spec.Check), nil)}
	}
}

// Newest returns the most recently modified file under dir ending in ext and
// modified within maxAge. Ties on mtime go to the smallest path.
func (v *Validator) Newest(ctx context.Context, dir, ext string, maxAge time.Duration) (evidence.CandidateFile, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	files, err := v.files.Scan(ctx, dir, ext)
	if err != nil {
		return evidence.CandidateFile{}, err
	}
	f, ok := evidence.Newest(evidence.Recent(files, v.now(), maxAge))
	if !ok {
		return evidence.CandidateFile{}, ErrNoRecentFile
	}
	return f, nil
}

// NewestFile continues when a recent file exists and names it.
func (v *Validator) NewestFile(ctx context.Context, dir, ext string, maxAge time.Duration) Report {
	f, err := v.Newest(ctx, dir, ext, maxAge)
	if err != nil {
		return Report{
			Decision: model.Blocked(noRecentReason(dir, ext, maxAge, err), nil),
			Steps:    []Step{{Name: "recency scan", Detail: err.Error()}},
		}
	}
	return Report{
		Decision: model.Continued(fmt.Sprintf("Newest %s file: %s", ext, f.Path)),
		Steps:    []Step{{Name: "recency scan", OK: true, Detail: f.Path}},
	}
}

// NewFile continues when version control reports an untracked or newly staged
// file ending in ext under dir, or when a file was modified within maxAge.
// A failing status query is recorded as a failed step and does not block on
// its own.
func (v *Validator) NewFile(ctx context.Context, dir, ext string, maxAge time.Duration) Report {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	var steps []Step
	found := make(map[string]struct{})

	if v.status != nil {
		entries, err := v.status.Status(ctx, dir)
		if err != nil {
			steps = append(steps, Step{Name: "vcs status", Detail: err.Error()})
		} else {
			n := 0
			for _, e := range entries {
				if e.IsNew() && strings.HasSuffix(e.Path, ext) {
					found[filepath.Clean(e.Path)] = struct{}{}
					n++
				}
			}
			steps = append(steps, Step{Name: "vcs status", OK: true, Detail: fmt.Sprintf("%d new", n)})
		}
	}

	files, err := v.files.Scan(ctx, dir, ext)
	if err != nil {
		steps = append(steps, Step{Name: "recency scan", Detail: err.Error()})
	} else {
		recent := evidence.Recent(files, v.now(), maxAge)
		for _, f := range recent {
			found[filepath.Clean(f.Path)] = struct{}{}
		}
		steps = append(steps, Step{Name: "recency scan", OK: true, Detail: fmt.Sprintf("%d recent", len(recent))})
	}

	if len(found) == 0 {
		return Report{
			Decision: model.Blocked(fmt.Sprintf("No new %s files found in %s/ within the last %s.",
				ext, displayDir(dir), formatAge(maxAge)), nil),
			Steps: steps,
		}
	}

	paths := make([]string, 0, len(found))
	for p := range found {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return Report{
		Decision: model.Continued(fmt.Sprintf("Found %d new file(s): %s", len(paths), strings.Join(paths, ", "))),
		Steps:    steps,
	}
}

// FileContains continues when the newest recent file contains every required
// string as a literal substring. Missing strings are reported in input order.
func (v *Validator) FileContains(ctx context.Context, dir, ext string, maxAge time.Duration, required []string) Report {
	f, err := v.Newest(ctx, dir, ext, maxAge)
	if err != nil {
		return Report{
			Decision: model.Blocked(noRecentReason(dir, ext, maxAge, err), nil),
			Steps:    []Step{{Name: "recency scan", Detail: err.Error()}},
		}
	}
	steps := []Step{{Name: "recency scan", OK: true, Detail: f.Path}}

	data, err := v.readFile(f.Path)
	if err != nil {
		steps = append(steps, Step{Name: "read", Detail: err.Error()})
		return Report{
			Decision: model.Blocked(fmt.Sprintf("File %s could not be read: %v", f.Path, err), nil),
			Steps:    steps,
		}
	}
	content := string(data)

	var missing []string
	for _, r := range required {
		if !strings.Contains(content, r) {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		steps = append(steps, Step{Name: "content", Detail: "missing " + strings.Join(missing, ", ")})
		return Report{
			Decision: model.Blocked(fmt.Sprintf("File %s is missing required content: %s",
				f.Path, strings.Join(missing, ", ")), nil),
			Steps: steps,
		}
	}
	steps = append(steps, Step{Name: "content", OK: true})
	return Report{
		Decision: model.Continued(fmt.Sprintf("File %s contains all required content.", f.Path)),
		Steps:    steps,
	}
}

func noRecentReason(dir, ext string, maxAge time.Duration, err error) string {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	dir = displayDir(dir)
	if errors.Is(err, ErrNoRecentFile) {
		return fmt.Sprintf("No recent %s files found in %s/ within the last %s.", ext, dir, formatAge(maxAge))
	}
	return fmt.Sprintf("No recent %s files found in %s/: %v", ext, dir, err)
}

// displayDir renders dir for messages. Empty means the current directory,
// never the filesystem root.
func displayDir(dir string) string {
	if dir == "" {
		return "."
	}
	return strings.TrimSuffix(dir, "/")
}

// formatAge renders whole minutes as "N minutes" and anything else as a Go duration.
func formatAge(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
