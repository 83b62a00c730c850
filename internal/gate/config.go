package gate

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/hookgate/internal/completion"
	"github.com/ppiankov/hookgate/internal/evidence"
	"github.com/ppiankov/hookgate/internal/lint"
	"github.com/ppiankov/hookgate/internal/policy"
	"github.com/ppiankov/hookgate/internal/redact"
)

// DirName is the per-project state directory.
const DirName = ".hookgate"

// Config is the per-project gate configuration (.hookgate/config.yaml).
// Relative paths are resolved against the project root.
type Config struct {
	FailMode   string                `yaml:"fail_mode"`
	AuditLog   string                `yaml:"audit_log"`
	Rules      string                `yaml:"rules"`
	SessionDB  string                `yaml:"session_db"`
	DiagLog    string                `yaml:"diag_log"`
	GitTimeout time.Duration         `yaml:"git_timeout"`
	Server     string                `yaml:"server"`
	Lint       lint.Config           `yaml:"lint"`
	Setup      completion.SetupSpec  `yaml:"setup"`
	Redact     []redact.ExtraPattern `yaml:"redact_patterns"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		FailMode:   string(policy.FailOpen),
		AuditLog:   filepath.Join(DirName, "audit.jsonl"),
		SessionDB:  filepath.Join(DirName, "sessions.db"),
		DiagLog:    filepath.Join(DirName, "logs", "hookgate.log"),
		GitTimeout: evidence.DefaultGitTimeout,
		Lint:       lint.DefaultConfig(),
		Setup:      completion.DefaultSetup(),
	}
}

// ConfigPath returns root/.hookgate/config.yaml.
func ConfigPath(root string) string {
	return filepath.Join(root, DirName, "config.yaml")
}

// LoadConfig reads a gate config. A missing file returns defaults; fields
// absent from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("gate: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("gate: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gate: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that yaml cannot.
func (c *Config) Validate() error {
	if _, err := policy.ParseFailMode(c.FailMode); err != nil {
		return err
	}
	if c.GitTimeout < 0 || c.Lint.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if _, err := redact.New(c.Redact); err != nil {
		return err
	}
	return nil
}

// Resolve makes every relative path absolute under root.
func (c *Config) Resolve(root string) {
	for _, p := range []*string{&c.AuditLog, &c.Rules, &c.SessionDB, &c.DiagLog} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(root, *p)
		}
	}
}

// FindRoot walks up from start to the nearest directory holding DirName.
// start itself is returned when none is found.
func FindRoot(start string) string {
	abs, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for dir := abs; ; {
		if info, err := os.Stat(filepath.Join(dir, DirName)); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs
		}
		dir = parent
	}
}

// DefaultConfigYAML is the commented file written by `hookgate init`.
func DefaultConfigYAML() string {
	return `# hookgate project configuration.
# Paths are relative to the project root (the directory holding .hookgate/).

# open: unparsable hook payloads are evaluated as empty requests (allowed).
# closed: unparsable hook payloads are blocked.
fail_mode: open

audit_log: .hookgate/audit.jsonl
session_db: .hookgate/sessions.db
diag_log: .hookgate/logs/hookgate.log

# Rules file. Empty uses ~/.hookgate/rules.yaml, then the built-in tables.
rules: ""

git_timeout: 5s

# Forward hook requests to a running "hookgate serve" instead of evaluating
# locally. Unreachable servers resolve through fail_mode.
server: ""

lint:
  command: [ruff, check, "{file}", --output-format, text]
  extensions: [.py]
  timeout: 30s

# Checklist for "hookgate hook stop --check setup".
setup:
  required_files: []
  required_dirs: []
  env_file: ""
  git_repo: true

# Extra secret patterns scrubbed from audit records, prompts and diagnostics.
redact_patterns: []
#  - name: INTERNAL_TICKET
#    regex: 'corp-[0-9]{6}'
`
}
