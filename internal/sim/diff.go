package sim

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DiffEntry is one recorded action whose verdict would change.
type DiffEntry struct {
	Timestamp  string `json:"ts"`
	SessionID  string `json:"session_id,omitempty"`
	Kind       string `json:"kind"`
	Resource   string `json:"resource"`
	OldVerdict string `json:"old_verdict"`
	NewVerdict string `json:"new_verdict"`
	OldReason  string `json:"old_reason,omitempty"`
	NewReason  string `json:"new_reason,omitempty"`
}

// SimResult holds the complete simulation output.
type SimResult struct {
	RulesPath      string      `json:"rules_path"`
	PolicyHash     string      `json:"policy_hash"`
	TotalActions   int         `json:"total_actions"`
	Skipped        int         `json:"skipped"`
	ChangedActions int         `json:"changed_actions"`
	NewlyBlocked   int         `json:"newly_blocked"`
	NewlyAllowed   int         `json:"newly_allowed"`
	Changes        []DiffEntry `json:"changes"`
}

// FormatText renders the simulation result as human-readable text.
func FormatText(r *SimResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Simulating %s against %d recorded actions", r.RulesPath, r.TotalActions)
	if r.Skipped > 0 {
		fmt.Fprintf(&b, " (%d skipped)", r.Skipped)
	}
	b.WriteString("...\n")

	if len(r.Changes) == 0 {
		b.WriteString("\nNo changes detected.\n")
		return b.String()
	}

	b.WriteString("\n")
	for _, d := range r.Changes {
		ts := d.Timestamp
		if len(ts) >= 19 {
			ts = ts[11:19]
		}
		resource := d.Resource
		if r := []rune(resource); len(r) > 40 {
			resource = string(r[:37]) + "..."
		}
		fmt.Fprintf(&b, "  CHANGED  %s  %-12s %-40s %s -> %s\n",
			ts, d.Kind, resource, d.OldVerdict, d.NewVerdict)
	}

	fmt.Fprintf(&b, "\n%d of %d actions changed.", r.ChangedActions, r.TotalActions)
	if r.NewlyBlocked > 0 || r.NewlyAllowed > 0 {
		fmt.Fprintf(&b, " %d newly blocked, %d newly allowed.", r.NewlyBlocked, r.NewlyAllowed)
	}
	b.WriteString("\n")

	return b.String()
}

// FormatJSON renders the simulation result as JSON.
func FormatJSON(r *SimResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal sim result: %w", err)
	}
	return string(data), nil
}
