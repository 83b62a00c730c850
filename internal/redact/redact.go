// Package redact scrubs credentials out of text before it is persisted to
// the audit log, the prompt history or the diagnostic log.
package redact

import (
	"fmt"
	"regexp"
	"sort"
)

// Placeholder replaces every scrubbed value.
const Placeholder = "[REDACTED]"

// PatternType identifies the category of a secret.
type PatternType string

const (
	PatternBearer  PatternType = "BEARER"
	PatternCredKV  PatternType = "CRED"
	PatternAPIKey  PatternType = "API_KEY"
	PatternGitHub  PatternType = "GITHUB_TOKEN"
	PatternAWS     PatternType = "AWS_KEY"
	PatternURLAuth PatternType = "URL_AUTH"
)

// rule replaces the value group of re. prefix groups are kept verbatim.
type rule struct {
	typ  PatternType
	re   *regexp.Regexp
	repl string
}

var builtin = []rule{
	{PatternBearer, regexp.MustCompile(`(?i)(authorization:\s*(?:bearer|basic)\s+)[^\s"']+`), "${1}" + Placeholder},
	{PatternURLAuth, regexp.MustCompile(`(://[^:/\s@]+:)[^@/\s]+@`), "${1}" + Placeholder + "@"},
	{PatternCredKV, regexp.MustCompile(`(?i)((?:password|passwd|secret|token|api_key|apikey)[ \t]*[=:][ \t]*)[^\s"']+`), "${1}" + Placeholder},
	{PatternAPIKey, regexp.MustCompile(`sk-[A-Za-z0-9_\-]{16,}`), Placeholder},
	{PatternGitHub, regexp.MustCompile(`github_pat_[A-Za-z0-9_]{20,}|gh[pousr]_[A-Za-z0-9]{30,}`), Placeholder},
	{PatternAWS, regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), Placeholder},
}

// Match is a single secret occurrence in text.
type Match struct {
	Type  PatternType
	Start int
	End   int
}

// ExtraPattern is an operator-defined secret pattern from config.
type ExtraPattern struct {
	Name  string `yaml:"name" json:"name"`
	Regex string `yaml:"regex" json:"regex"`
}

// Scrubber applies the built-in rules followed by any extra patterns.
type Scrubber struct {
	rules []rule
}

// Default scrubs with the built-in rules only.
var Default = &Scrubber{rules: builtin}

// New compiles extra patterns on top of the built-in rules.
func New(extra []ExtraPattern) (*Scrubber, error) {
	rules := append([]rule(nil), builtin...)
	for i, def := range extra {
		if def.Name == "" {
			return nil, fmt.Errorf("redact: extra_patterns[%d]: name is required", i)
		}
		if def.Regex == "" {
			return nil, fmt.Errorf("redact: extra_patterns[%d]: regex is required", i)
		}
		re, err := regexp.Compile(def.Regex)
		if err != nil {
			return nil, fmt.Errorf("redact: extra_patterns[%d] %q: invalid regex: %w", i, def.Name, err)
		}
		rules = append(rules, rule{typ: PatternType(def.Name), re: re, repl: Placeholder})
	}
	return &Scrubber{rules: rules}, nil
}

// Scrub returns text with every secret replaced by Placeholder.
func (s *Scrubber) Scrub(text string) string {
	if s == nil {
		s = Default
	}
	for _, r := range s.rules {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text
}

// Scan reports where secrets occur, earliest first.
func (s *Scrubber) Scan(text string) []Match {
	if s == nil {
		s = Default
	}
	var matches []Match
	for _, r := range s.rules {
		for _, loc := range r.re.FindAllStringIndex(text, -1) {
			matches = append(matches, Match{Type: r.typ, Start: loc[0], End: loc[1]})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })
	return matches
}

// Scrub applies the built-in rules.
func Scrub(text string) string { return Default.Scrub(text) }
