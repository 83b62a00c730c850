// Package rules holds the ordered pattern tables the policy engines evaluate.
// Tables are compiled once at load time and never mutated afterwards.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/hookgate/internal/model"
)

// Entry is one raw rule as written in the rules file.
type Entry struct {
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description,omitempty"`
}

// Patterns holds the raw entries organized by table.
type Patterns struct {
	Commands       []Entry `yaml:"commands"`
	ProtectedPaths []Entry `yaml:"protected_paths"`
	AllowedPaths   []Entry `yaml:"allowed_paths"`
}

// Rule is a compiled pattern plus its human-readable description.
type Rule struct {
	re          *regexp.Regexp
	Description string
	Category    model.Category
}

// Pattern returns the source text of the compiled pattern.
func (r *Rule) Pattern() string {
	return r.re.String()
}

// Match reports whether the pattern occurs anywhere in s.
func (r *Rule) Match(s string) bool {
	return r.re.MatchString(s)
}

// Ref converts the rule into the reference carried by a Decision.
func (r *Rule) Ref() *model.RuleRef {
	return &model.RuleRef{
		Pattern:     r.re.String(),
		Description: r.Description,
		Category:    r.Category,
	}
}

// Table is an ordered rule list. First match wins.
type Table []*Rule

// FirstMatch returns the first rule whose pattern occurs in s, or nil.
func (t Table) FirstMatch(s string) *Rule {
	for _, r := range t {
		if r.re.MatchString(s) {
			return r
		}
	}
	return nil
}

// Set is the full compiled rule configuration.
type Set struct {
	Commands  Table
	Protected Table
	Allowed   Table

	raw  Patterns
	hash string
}

// New compiles raw patterns into a Set. Any invalid regex is an error naming
// the table and position of the offending entry.
func New(p Patterns) (*Set, error) {
	s := &Set{raw: p}
	var err error

	if s.Commands, err = compile("commands", p.Commands, model.CategoryCommand); err != nil {
		return nil, err
	}
	if s.Protected, err = compile("protected_paths", p.ProtectedPaths, model.CategoryPath); err != nil {
		return nil, err
	}
	if s.Allowed, err = compile("allowed_paths", p.AllowedPaths, model.CategoryPath); err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("rules: marshal for hash: %w", err)
	}
	s.hash = hashBytes(data)
	return s, nil
}

// NewDefault creates a Set from the built-in tables.
func NewDefault() *Set {
	s, err := New(DefaultPatterns)
	if err != nil {
		panic(fmt.Sprintf("rules: default patterns do not compile: %v", err))
	}
	return s
}

// DefaultPath returns ~/.hookgate/rules.yaml, or "" if the home dir is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".hookgate", "rules.yaml")
}

// Load reads a rules file. Empty path falls back to DefaultPath.
// A missing file yields the defaults; a table omitted from the file keeps its
// default entries.
func Load(path string) (*Set, error) {
	if path == "" {
		path = DefaultPath()
		if path == "" {
			return NewDefault(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), nil
		}
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}

	var p Patterns
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("rules: parse %s: %w", path, err)
	}
	if p.Commands == nil {
		p.Commands = DefaultPatterns.Commands
	}
	if p.ProtectedPaths == nil {
		p.ProtectedPaths = DefaultPatterns.ProtectedPaths
	}
	if p.AllowedPaths == nil {
		p.AllowedPaths = DefaultPatterns.AllowedPaths
	}

	s, err := New(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Hash returns "sha256:<hex>" of the canonical YAML form of the raw patterns.
// It is stamped into audit records so decisions can be tied to a rule version.
func (s *Set) Hash() string {
	return s.hash
}

// Raw returns a copy of the uncompiled patterns.
func (s *Set) Raw() Patterns {
	return Patterns{
		Commands:       append([]Entry(nil), s.raw.Commands...),
		ProtectedPaths: append([]Entry(nil), s.raw.ProtectedPaths...),
		AllowedPaths:   append([]Entry(nil), s.raw.AllowedPaths...),
	}
}

func compile(table string, entries []Entry, cat model.Category) (Table, error) {
	t := make(Table, 0, len(entries))
	for i, e := range entries {
		re, err := regexp.Compile(e.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rules: %s[%d] %q: %w", table, i, e.Pattern, err)
		}
		desc := e.Description
		if desc == "" {
			desc = e.Pattern
		}
		t = append(t, &Rule{re: re, Description: desc, Category: cat})
	}
	return t, nil
}

func hashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(h[:])
}
