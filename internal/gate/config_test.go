package gate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestLoadConfigMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FailMode != "open" || cfg.GitTimeout != 5*time.Second || cfg.Lint.Timeout != 30*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("fail_mode: closed\nlint:\n  extensions: [.py, .pyi]\n"), 0644)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FailMode != "closed" {
		t.Errorf("fail_mode = %q", cfg.FailMode)
	}
	if len(cfg.Lint.Extensions) != 2 || cfg.Lint.Command[0] != "ruff" {
		t.Errorf("lint = %+v", cfg.Lint)
	}
	if cfg.AuditLog != filepath.Join(DirName, "audit.jsonl") {
		t.Errorf("audit_log default lost: %q", cfg.AuditLog)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := map[string]string{
		"bad fail mode":   "fail_mode: sometimes\n",
		"bad yaml":        "fail_mode: [\n",
		"bad duration":    "git_timeout: soon\n",
		"bad redact rule": "redact_patterns:\n  - name: X\n    regex: '('\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			os.WriteFile(path, []byte(body), 0644)
			if _, err := LoadConfig(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDefaultConfigYAMLMatchesDefaults(t *testing.T) {
	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(DefaultConfigYAML()), cfg); err != nil {
		t.Fatalf("default YAML does not parse: %v", err)
	}
	def := DefaultConfig()
	if cfg.FailMode != def.FailMode || cfg.AuditLog != def.AuditLog || cfg.SessionDB != def.SessionDB || cfg.DiagLog != def.DiagLog {
		t.Errorf("paths differ: %+v vs %+v", cfg, def)
	}
	if cfg.GitTimeout != def.GitTimeout || cfg.Lint.Timeout != def.Lint.Timeout {
		t.Errorf("timeouts differ")
	}
	if strings.Join(cfg.Lint.Command, " ") != strings.Join(def.Lint.Command, " ") {
		t.Errorf("lint command differs: %v", cfg.Lint.Command)
	}
	if cfg.Setup.GitRepo != def.Setup.GitRepo {
		t.Errorf("setup differs")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default YAML invalid: %v", err)
	}
}

func TestResolve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules = "/etc/hookgate/rules.yaml"
	cfg.Resolve("/proj")
	if cfg.AuditLog != "/proj/.hookgate/audit.jsonl" {
		t.Errorf("audit_log = %q", cfg.AuditLog)
	}
	if cfg.Rules != "/etc/hookgate/rules.yaml" {
		t.Errorf("absolute rules path changed: %q", cfg.Rules)
	}
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, DirName), 0755)
	deep := filepath.Join(root, "a", "b")
	os.MkdirAll(deep, 0755)

	if got := FindRoot(deep); got != root {
		t.Errorf("FindRoot = %q, want %q", got, root)
	}

	lone := t.TempDir()
	if got := FindRoot(lone); got != lone {
		t.Errorf("FindRoot without marker = %q, want %q", got, lone)
	}
}
