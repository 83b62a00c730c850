package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	label := result.SessionID
	if label == "" {
		label = "all sessions"
	}
	if len(result.Records) == 0 {
		return fmt.Sprintf("Session: %s | No records found.\n", label)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s | %s to %s UTC\n", label,
		reformat(result.Summary.FirstTimestamp, "2006-01-02 15:04:05"),
		reformat(result.Summary.LastTimestamp, "15:04:05"))
	b.WriteString(separator + "\n")

	for _, r := range result.Records {
		fmt.Fprintf(&b, "%-10s %-9s %-12s %-10s %s\n",
			reformat(r.Timestamp, "15:04:05"),
			strings.ToUpper(r.Verdict),
			r.Action.Kind,
			truncate(r.Action.Tool, 10),
			truncate(r.Action.Resource, 48))
		if r.Verdict == "block" && r.Reason != "" {
			fmt.Fprintf(&b, "           ↳ %s\n", truncate(firstLine(r.Reason), 72))
		}
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))
	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("audit: marshal replay result: %w", err)
	}
	return string(data), nil
}

// FormatLine renders one record on a single line, for tail output.
func FormatLine(r Record) string {
	s := fmt.Sprintf("%s %-8s %-11s %s", r.Timestamp, r.Verdict, r.Action.Kind, r.Action.Resource)
	if r.Reason != "" {
		s += "  # " + firstLine(r.Reason)
	}
	return s
}

func formatSummary(s ReplaySummary) string {
	var parts []string
	if s.AllowCount > 0 {
		parts = append(parts, fmt.Sprintf("%d allow", s.AllowCount))
	}
	if s.BlockCount > 0 {
		parts = append(parts, fmt.Sprintf("%d block", s.BlockCount))
	}
	if s.ContinueCount > 0 {
		parts = append(parts, fmt.Sprintf("%d continue", s.ContinueCount))
	}
	return fmt.Sprintf("Summary: %s | Total: %d\n", strings.Join(parts, ", "), s.Total)
}

func reformat(ts, layout string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format(layout)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
