package rulediff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders the diff result as human-readable text.
func FormatText(r *DiffResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rules diff: %s -> %s\n", r.OldPath, r.NewPath)
	if !r.HasChanges {
		b.WriteString("\nNo changes detected.\n")
		return b.String()
	}

	table := ""
	for _, rc := range r.RuleChanges {
		if rc.Table != table {
			table = rc.Table
			fmt.Fprintf(&b, "\n  %s:\n", table)
		}
		switch rc.Type {
		case Added:
			fmt.Fprintf(&b, "    + %s  %s\n", rc.Pattern, rc.New)
		case Removed:
			fmt.Fprintf(&b, "    - %s  %s\n", rc.Pattern, rc.Old)
		case Changed:
			fmt.Fprintf(&b, "    ~ %s  %s (was: %s)\n", rc.Pattern, rc.New, rc.Old)
		case Moved:
			fmt.Fprintf(&b, "    ^ %s  (order changed)\n", rc.Pattern)
		}
	}
	return b.String()
}

// FormatJSON renders the diff result as JSON.
func FormatJSON(r *DiffResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diff result: %w", err)
	}
	return string(data), nil
}
