package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ppiankov/hookgate/internal/audit"
	"github.com/ppiankov/hookgate/internal/client"
	"github.com/ppiankov/hookgate/internal/diag"
	"github.com/ppiankov/hookgate/internal/gate"
	"github.com/ppiankov/hookgate/internal/model"
	"github.com/ppiankov/hookgate/internal/policy"
	"github.com/ppiankov/hookgate/internal/redact"
	"github.com/ppiankov/hookgate/internal/rules"
)

// project is the resolved configuration for one invocation.
type project struct {
	root string
	cfg  *gate.Config
	log  *diag.Logger
}

// loadProject resolves the project root from --root, then hint, then the
// working directory, and loads its config. The diag log is best effort.
func loadProject(hint string) (*project, error) {
	start := rootDir
	if start == "" {
		start = hint
	}
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
		start = wd
	}
	root := gate.FindRoot(start)

	path := configPath
	if path == "" {
		path = gate.ConfigPath(root)
	}
	cfg, err := gate.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.Resolve(root)

	p := &project{root: root, cfg: cfg}
	if cfg.DiagLog != "" {
		if l, err := diag.Open(cfg.DiagLog); err == nil {
			p.log = l
		}
	}
	return p, nil
}

func (p *project) close() {
	p.log.Close()
}

// failMode is validated by LoadConfig, so the parse cannot fail here.
func (p *project) failMode() policy.FailMode {
	m, _ := policy.ParseFailMode(p.cfg.FailMode)
	return m
}

// evaluator returns a remote client when a server is configured, otherwise
// a local gate. The returned func releases it.
func (p *project) evaluator(server string) (gate.Evaluator, func(), error) {
	if server == "" {
		server = p.cfg.Server
	}
	if server != "" {
		c, err := client.New(server, p.failMode())
		if err != nil {
			return nil, nil, err
		}
		return &fallbackAudit{next: c, proj: p}, func() { c.Close() }, nil
	}
	g, err := gate.Open(p.cfg, p.root, p.log)
	if err != nil {
		return nil, nil, err
	}
	return g, func() { g.Close() }, nil
}

// recordUnavailable appends the fail-mode decision for req to the project's
// audit log. It is used when no gate rendered the decision, so the action is
// still recorded exactly once.
func (p *project) recordUnavailable(req model.ActionRequest, d model.Decision, cause error) error {
	hash := ""
	if set, err := rules.Load(p.cfg.Rules); err == nil {
		hash = set.Hash()
	}
	rec := audit.NewRecord(req, d, hash)
	if !d.IsBlock() {
		rec.Reason = fmt.Sprintf("policy gate unavailable (fail-open): %v", cause)
	}
	scrub, err := redact.New(p.cfg.Redact)
	if err != nil {
		scrub = redact.Default
	}
	rec.Action.Resource = scrub.Scrub(rec.Action.Resource)
	rec.Reason = scrub.Scrub(rec.Reason)

	log, err := audit.Open(p.cfg.AuditLog)
	if err != nil {
		return err
	}
	defer log.Close()
	if _, err := log.Append(rec); err != nil {
		return err
	}
	return nil
}

// fallbackAudit records decisions the remote gate never saw.
type fallbackAudit struct {
	next gate.Evaluator
	proj *project
}

func (f *fallbackAudit) Evaluate(ctx context.Context, req model.ActionRequest) (gate.Result, error) {
	res, err := f.next.Evaluate(ctx, req)
	if err == nil || !errors.Is(err, client.ErrUnavailable) {
		return res, err
	}
	if auditErr := f.proj.recordUnavailable(req, res.Decision, err); auditErr != nil {
		return res, fmt.Errorf("%w (local audit: %v)", err, auditErr)
	}
	return res, err
}
