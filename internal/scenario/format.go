package scenario

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders results as a pass/fail report, one line per scenario
// file and one line per failed case.
func FormatText(results []*RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Checking %d scenario %s...\n\n", len(results), plural(len(results), "file"))

	var cases, passed, failedFiles int
	for _, r := range results {
		cases += r.Total
		passed += r.Passed
		status := "PASS"
		if r.Failed > 0 {
			status = "FAIL"
			failedFiles++
		}
		fmt.Fprintf(&b, "  %s  %s (%d/%d)\n", status, r.Name, r.Passed, r.Total)
		writeFailures(&b, r.Cases)
	}

	fmt.Fprintf(&b, "\n%d of %d cases passed.", passed, cases)
	if failedFiles > 0 {
		fmt.Fprintf(&b, " %d of %d scenarios failed.", failedFiles, len(results))
	}
	b.WriteString("\n")
	return b.String()
}

func writeFailures(b *strings.Builder, cases []CaseResult) {
	for _, c := range cases {
		if c.Passed {
			continue
		}
		fmt.Fprintf(b, "    FAIL  case %d: %-12s %-40s expected %s, got %s\n",
			c.Index, c.Kind, truncate(c.Resource, 40), c.Expected, c.Actual)
		if c.Reason != "" {
			fmt.Fprintf(b, "          %s\n", c.Reason)
		}
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// FormatJSON renders run results as JSON.
func FormatJSON(results []*RunResult) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("scenario: marshal results: %w", err)
	}
	return string(data), nil
}
