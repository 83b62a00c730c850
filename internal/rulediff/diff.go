// Package rulediff compares two rule files table by table.
package rulediff

import (
	"github.com/ppiankov/hookgate/internal/rules"
)

// Change types.
const (
	Added   = "added"
	Removed = "removed"
	Changed = "changed" // same pattern, new description
	Moved   = "moved"   // same pattern, new position; first match wins
)

// RuleChange is one difference within a table.
type RuleChange struct {
	Table   string `json:"table"`
	Type    string `json:"type"`
	Pattern string `json:"pattern"`
	Old     string `json:"old,omitempty"`
	New     string `json:"new,omitempty"`
}

// DiffResult holds the comparison of two rule sets.
type DiffResult struct {
	OldPath     string       `json:"old_path"`
	NewPath     string       `json:"new_path"`
	OldHash     string       `json:"old_hash"`
	NewHash     string       `json:"new_hash"`
	RuleChanges []RuleChange `json:"rule_changes"`
	HasChanges  bool         `json:"has_changes"`
}

// Diff compares two loaded rule sets.
func Diff(old, new *rules.Set) *DiffResult {
	o, n := old.Raw(), new.Raw()
	r := &DiffResult{OldHash: old.Hash(), NewHash: new.Hash()}
	diffTable(r, "commands", o.Commands, n.Commands)
	diffTable(r, "protected_paths", o.ProtectedPaths, n.ProtectedPaths)
	diffTable(r, "allowed_paths", o.AllowedPaths, n.AllowedPaths)
	r.HasChanges = len(r.RuleChanges) > 0
	return r
}

func diffTable(r *DiffResult, table string, oldEntries, newEntries []rules.Entry) {
	oldIdx := index(oldEntries)
	newIdx := index(newEntries)

	// Positions among patterns present in both tables, so an insertion does
	// not report every later rule as moved.
	var oldCommon, newCommon []string
	for i, e := range oldEntries {
		if _, ok := newIdx[e.Pattern]; ok && oldIdx[e.Pattern] == i {
			oldCommon = append(oldCommon, e.Pattern)
		}
	}
	for i, e := range newEntries {
		if _, ok := oldIdx[e.Pattern]; ok && newIdx[e.Pattern] == i {
			newCommon = append(newCommon, e.Pattern)
		}
	}
	oldPos := make(map[string]int, len(oldCommon))
	for i, p := range oldCommon {
		oldPos[p] = i
	}

	for i, e := range newEntries {
		if newIdx[e.Pattern] != i {
			continue
		}
		oi, ok := oldIdx[e.Pattern]
		if !ok {
			r.RuleChanges = append(r.RuleChanges, RuleChange{Table: table, Type: Added, Pattern: e.Pattern, New: e.Description})
			continue
		}
		if prev := oldEntries[oi]; prev.Description != e.Description {
			r.RuleChanges = append(r.RuleChanges, RuleChange{Table: table, Type: Changed, Pattern: e.Pattern, Old: prev.Description, New: e.Description})
		}
	}
	for i, p := range newCommon {
		if oldPos[p] != i {
			r.RuleChanges = append(r.RuleChanges, RuleChange{Table: table, Type: Moved, Pattern: p})
		}
	}
	for i, e := range oldEntries {
		if _, ok := newIdx[e.Pattern]; !ok && oldIdx[e.Pattern] == i {
			r.RuleChanges = append(r.RuleChanges, RuleChange{Table: table, Type: Removed, Pattern: e.Pattern, Old: e.Description})
		}
	}
}

// index maps pattern to its first position. Later duplicates can never match
// first and are ignored.
func index(entries []rules.Entry) map[string]int {
	m := make(map[string]int, len(entries))
	for i, e := range entries {
		if _, ok := m[e.Pattern]; !ok {
			m[e.Pattern] = i
		}
	}
	return m
}
