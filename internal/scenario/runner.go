// Package scenario checks a rule set against YAML assertion files.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/hookgate/internal/model"
	"github.com/ppiankov/hookgate/internal/policy"
	"github.com/ppiankov/hookgate/internal/rules"
)

// Run evaluates every case against set. Cases are independent and nothing
// is audited.
func Run(s *Scenario, set *rules.Set) *RunResult {
	commands := policy.NewCommandEngine(set.Commands)
	files := policy.NewFileEngine(set.Allowed, set.Protected)

	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	for i, c := range s.Cases {
		cr := CaseResult{
			Index:    i + 1,
			Kind:     c.Kind,
			Expected: strings.ToLower(strings.TrimSpace(c.Expect)),
		}

		switch model.ActionKind(c.Kind) {
		case model.KindCommand:
			cr.Resource = c.Command
			d := commands.Evaluate(c.Command)
			cr.Actual, cr.Reason = string(d.Verdict), d.Reason
		case model.KindFileAccess, "file":
			cr.Resource = c.Path
			op := model.OpRead
			if c.Operation != "" {
				var ok bool
				if op, ok = model.FileOpForTool(c.Operation); !ok {
					cr.Actual, cr.Reason = "error", fmt.Sprintf("unknown operation %q", c.Operation)
					break
				}
			}
			d := files.Evaluate(c.Path, op)
			cr.Actual, cr.Reason = string(d.Verdict), d.Reason
		default:
			cr.Actual, cr.Reason = "error", fmt.Sprintf("unsupported kind %q (want command or file_access)", c.Kind)
		}

		if cr.Actual == cr.Expected {
			cr.Passed = true
			result.Passed++
		} else {
			result.Failed++
		}
		result.Cases = append(result.Cases, cr)
	}

	return result
}

// Load reads one scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = filepath.Base(path)
	}
	return &s, nil
}

// LoadAndRun loads a scenario file and runs it against set.
func LoadAndRun(path string, set *rules.Set) (*RunResult, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	result := Run(s, set)
	result.File = path
	return result, nil
}

// RunGlob runs every scenario file matching pattern, in path order.
func RunGlob(pattern string, set *rules.Set) ([]*RunResult, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no scenario files match %q", pattern)
	}
	sort.Strings(matches)

	results := make([]*RunResult, 0, len(matches))
	for _, m := range matches {
		r, err := LoadAndRun(m, set)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// Failed reports whether any case in results failed.
func Failed(results []*RunResult) bool {
	for _, r := range results {
		if r.Failed > 0 {
			return true
		}
	}
	return false
}
