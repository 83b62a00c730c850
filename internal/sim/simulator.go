// Package sim replays recorded decisions against a candidate rule set.
package sim

import (
	"fmt"
	"os"

	"github.com/ppiankov/hookgate/internal/audit"
	"github.com/ppiankov/hookgate/internal/model"
	"github.com/ppiankov/hookgate/internal/policy"
	"github.com/ppiankov/hookgate/internal/rules"
)

// Simulate re-evaluates every command and file_access record in the audit
// log against the rules at rulesPath and reports verdict changes. Other
// kinds depend on workspace state at the time and are counted as skipped.
//
// Resources were scrubbed before they were recorded, so a rule that only
// matches a secret value cannot be replayed.
func Simulate(logPath, rulesPath string) (*SimResult, error) {
	if rulesPath == "" {
		return nil, fmt.Errorf("rules path is required")
	}
	if _, err := os.Stat(rulesPath); err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	set, err := rules.Load(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	recs, err := audit.ReadAll(logPath)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	result := Run(recs, set)
	result.RulesPath = rulesPath
	return result, nil
}

// Run compares recs against set.
func Run(recs []audit.Record, set *rules.Set) *SimResult {
	commands := policy.NewCommandEngine(set.Commands)
	files := policy.NewFileEngine(set.Allowed, set.Protected)

	result := &SimResult{PolicyHash: set.Hash()}
	for _, rec := range recs {
		var d model.Decision
		switch model.ActionKind(rec.Action.Kind) {
		case model.KindCommand:
			d = commands.Evaluate(rec.Action.Resource)
		case model.KindFileAccess:
			op, ok := model.FileOpForTool(rec.Action.Tool)
			if !ok {
				op = model.OpRead
			}
			d = files.Evaluate(rec.Action.Resource, op)
		default:
			result.Skipped++
			continue
		}
		result.TotalActions++

		newVerdict := string(d.Verdict)
		if newVerdict == rec.Verdict {
			continue
		}
		result.Changes = append(result.Changes, DiffEntry{
			Timestamp:  rec.Timestamp,
			SessionID:  rec.SessionID,
			Kind:       rec.Action.Kind,
			Resource:   rec.Action.Resource,
			OldVerdict: rec.Verdict,
			NewVerdict: newVerdict,
			OldReason:  rec.Reason,
			NewReason:  d.Reason,
		})
		result.ChangedActions++

		switch {
		case rec.Verdict == string(model.Allow) && d.Verdict == model.Block:
			result.NewlyBlocked++
		case rec.Verdict == string(model.Block) && d.Verdict == model.Allow:
			result.NewlyAllowed++
		}
	}
	return result
}
