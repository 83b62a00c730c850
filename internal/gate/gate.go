// Package gate is the composition root: one request in, one decision out,
// one audit record appended.
package gate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ppiankov/hookgate/internal/audit"
	"github.com/ppiankov/hookgate/internal/completion"
	"github.com/ppiankov/hookgate/internal/diag"
	"github.com/ppiankov/hookgate/internal/evidence"
	"github.com/ppiankov/hookgate/internal/lint"
	"github.com/ppiankov/hookgate/internal/model"
	"github.com/ppiankov/hookgate/internal/policy"
	"github.com/ppiankov/hookgate/internal/redact"
	"github.com/ppiankov/hookgate/internal/rules"
	"github.com/ppiankov/hookgate/internal/session"
)

// Result is a decision plus the sub-checks behind it and the audit record
// written for it.
type Result struct {
	Decision model.Decision    `json:"decision"`
	Steps    []completion.Step `json:"steps,omitempty"`
	Record   audit.Record      `json:"record"`
}

// Evaluator renders decisions. Gate evaluates locally; the gRPC client
// forwards to a remote Gate.
type Evaluator interface {
	Evaluate(ctx context.Context, req model.ActionRequest) (Result, error)
}

// Gate evaluates requests against the loaded rules and evidence sources.
type Gate struct {
	mu       sync.RWMutex
	set      *rules.Set
	commands *policy.CommandEngine
	files    *policy.FileEngine

	validator *completion.Validator
	linter    *lint.Runner
	audit     *audit.Log
	sessions  *session.Store
	scrub     *redact.Scrubber
	failMode  policy.FailMode
	log       *diag.Logger
	root      string

	gitTimeout time.Duration
	setup      *completion.SetupSpec
}

// Option configures a Gate.
type Option func(*Gate)

// WithValidator replaces the completion validator.
func WithValidator(v *completion.Validator) Option { return func(g *Gate) { g.validator = v } }

// WithLinter sets the post-write lint runner. Without one, lint requests allow.
func WithLinter(r *lint.Runner) Option { return func(g *Gate) { g.linter = r } }

// WithSessions sets the prompt history store.
func WithSessions(s *session.Store) Option { return func(g *Gate) { g.sessions = s } }

// WithScrubber sets how secrets are removed before persisting.
func WithScrubber(s *redact.Scrubber) Option { return func(g *Gate) { g.scrub = s } }

// WithFailMode sets the verdict for malformed requests.
func WithFailMode(m policy.FailMode) Option { return func(g *Gate) { g.failMode = m } }

// WithLogger sets the diagnostic logger.
func WithLogger(l *diag.Logger) Option { return func(g *Gate) { g.log = l } }

// WithRoot anchors relative paths in completion and lint requests.
func WithRoot(root string) Option { return func(g *Gate) { g.root = root } }

// WithGitTimeout bounds git queries made by the default validator.
func WithGitTimeout(d time.Duration) Option { return func(g *Gate) { g.gitTimeout = d } }

// WithSetup sets the checklist used by the default validator's setup check.
func WithSetup(spec completion.SetupSpec) Option { return func(g *Gate) { g.setup = &spec } }

// New creates a Gate. log may be nil to skip auditing (simulation only).
func New(set *rules.Set, log *audit.Log, opts ...Option) *Gate {
	g := &Gate{
		audit:    log,
		scrub:    redact.Default,
		failMode: policy.FailOpen,
	}
	for _, o := range opts {
		o(g)
	}
	if g.validator == nil {
		git := evidence.GitStatus{WorkDir: g.root, Timeout: g.gitTimeout}
		vopts := []completion.Option{completion.WithRepoProbe(git), completion.WithReadFile(g.readFile)}
		if g.setup != nil {
			vopts = append(vopts, completion.WithSetup(*g.setup))
		}
		g.validator = completion.New(evidence.DirScanner{Root: g.root}, git, vopts...)
	}
	g.Reload(set)
	return g
}

// Open builds a Gate from a resolved Config. Close releases what it opened.
func Open(cfg *Config, root string, log *diag.Logger) (*Gate, error) {
	mode, err := policy.ParseFailMode(cfg.FailMode)
	if err != nil {
		return nil, fmt.Errorf("gate: %w", err)
	}
	scrub, err := redact.New(cfg.Redact)
	if err != nil {
		return nil, fmt.Errorf("gate: %w", err)
	}
	set, err := rules.Load(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("gate: load rules: %w", err)
	}
	auditLog, err := audit.Open(cfg.AuditLog)
	if err != nil {
		return nil, fmt.Errorf("gate: %w", err)
	}

	opts := []Option{
		WithRoot(root),
		WithGitTimeout(cfg.GitTimeout),
		WithSetup(cfg.Setup),
		WithLinter(lint.NewRunner(cfg.Lint)),
		WithScrubber(scrub),
		WithFailMode(mode),
		WithLogger(log),
	}
	if cfg.SessionDB != "" {
		store, err := session.Open(cfg.SessionDB)
		if err != nil {
			// Prompt history is optional; decisions still work without it.
			log.Warn("session store unavailable", diag.Fields{"error": err, "path": cfg.SessionDB})
		} else {
			opts = append(opts, WithSessions(store))
		}
	}
	return New(set, auditLog, opts...), nil
}

// Close releases the session store.
func (g *Gate) Close() error {
	return g.sessions.Close()
}

// Reload swaps in a new rule set. In-flight evaluations finish on the old one.
func (g *Gate) Reload(set *rules.Set) {
	if set == nil {
		set = rules.NewDefault()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.set = set
	g.commands = policy.NewCommandEngine(set.Commands)
	g.files = policy.NewFileEngine(set.Allowed, set.Protected)
}

// PolicyHash identifies the active rule set.
func (g *Gate) PolicyHash() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.set.Hash()
}

// FailMode reports how malformed or unserviceable requests resolve.
func (g *Gate) FailMode() policy.FailMode { return g.failMode }

// Sessions returns the prompt history store, or nil.
func (g *Gate) Sessions() *session.Store { return g.sessions }

// Root returns the project root relative paths are resolved against.
func (g *Gate) Root() string { return g.root }

// AuditPath returns the audit log path, or "" when auditing is off.
func (g *Gate) AuditPath() string {
	if g.audit == nil {
		return ""
	}
	return g.audit.Path()
}

// Evaluate renders exactly one decision for req and appends exactly one
// audit record. An audit failure is returned alongside the decision, which
// is still valid.
func (g *Gate) Evaluate(ctx context.Context, req model.ActionRequest) (Result, error) {
	g.mu.RLock()
	commands, files, hash := g.commands, g.files, g.set.Hash()
	g.mu.RUnlock()

	res := g.decide(ctx, req, commands, files)

	rec := audit.NewRecord(req, res.Decision, hash)
	rec.Action.Resource = g.scrub.Scrub(rec.Action.Resource)
	rec.Reason = g.scrub.Scrub(rec.Reason)
	res.Record = rec

	g.log.Info("decision", diag.Fields{
		"session_id": req.SessionID,
		"kind":       string(req.Kind),
		"tool":       req.Tool,
		"resource":   rec.Action.Resource,
		"verdict":    string(res.Decision.Verdict),
		"malformed":  req.Malformed,
	})

	if g.audit == nil {
		return res, nil
	}
	written, err := g.audit.Append(rec)
	if err != nil {
		g.log.Error("audit append failed", diag.Fields{"error": err, "path": g.audit.Path()})
		return res, fmt.Errorf("gate: %w", err)
	}
	res.Record = written
	return res, nil
}

func (g *Gate) decide(ctx context.Context, req model.ActionRequest, commands *policy.CommandEngine, files *policy.FileEngine) Result {
	if req.Malformed {
		if d, ok := g.failMode.Malformed(); ok {
			return Result{Decision: d}
		}
	}

	switch req.Kind {
	case model.KindCommand:
		return Result{Decision: commands.Evaluate(req.Command)}
	case model.KindFileAccess:
		return Result{Decision: files.Evaluate(req.Path, req.Operation)}
	case model.KindCompletion:
		return g.complete(ctx, req.Completion)
	case model.KindLint:
		return g.lint(ctx, req.Path)
	case model.KindPrompt:
		return g.prompt(ctx, req)
	default:
		return Result{Decision: model.Allowed()}
	}
}

func (g *Gate) complete(ctx context.Context, spec *model.CompletionSpec) Result {
	if spec == nil {
		return Result{Decision: model.Blocked("completion request without a check", nil)}
	}
	s := *spec
	if s.Dir == "" {
		s.Dir = "."
	}
	// Scanners anchor on the root themselves; setup checks stat paths directly.
	if s.Check == model.CheckSetup {
		s.Dir = g.resolve(s.Dir)
	}
	report := g.validator.Validate(ctx, s)
	for _, step := range report.Steps {
		if !step.OK {
			g.log.Warn("completion step failed", diag.Fields{"check": string(s.Check), "step": step.Name, "detail": step.Detail})
		}
	}
	return Result{Decision: report.Decision, Steps: report.Steps}
}

func (g *Gate) lint(ctx context.Context, path string) Result {
	if g.linter == nil || path == "" {
		return Result{Decision: model.Allowed()}
	}
	r := g.linter.Check(ctx, g.resolve(path))
	step := completion.Step{Name: "lint", OK: r.Status != lint.StatusError && r.Status != lint.StatusFailed, Detail: r.Detail}
	if r.Status == lint.StatusFailed {
		step.Detail = "diagnostics reported"
	}
	if r.Status == lint.StatusError {
		g.log.Warn("lint did not complete", diag.Fields{"path": path, "detail": r.Detail})
	}
	return Result{Decision: r.Decision, Steps: []completion.Step{step}}
}

func (g *Gate) prompt(ctx context.Context, req model.ActionRequest) Result {
	if g.sessions == nil {
		return Result{Decision: model.Allowed()}
	}
	step := completion.Step{Name: "prompt history", OK: true}
	if _, err := g.sessions.AddPrompt(ctx, req.SessionID, g.scrub.Scrub(req.Prompt)); err != nil {
		step.OK = false
		step.Detail = err.Error()
		g.log.Warn("prompt not stored", diag.Fields{"error": err, "session_id": req.SessionID})
	}
	return Result{Decision: model.Allowed(), Steps: []completion.Step{step}}
}

func (g *Gate) resolve(path string) string {
	if g.root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(g.root, path)
}

func (g *Gate) readFile(path string) ([]byte, error) {
	return os.ReadFile(g.resolve(path))
}
