package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/hookgate/internal/audit"
	"github.com/ppiankov/hookgate/internal/gate"
	"github.com/ppiankov/hookgate/internal/model"
	"github.com/ppiankov/hookgate/internal/rules"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	al, err := audit.Open(filepath.Join(root, "audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	return New(gate.New(rules.NewDefault(), al, gate.WithRoot(root)), "test"), root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCheckCommand(t *testing.T) {
	s, root := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleCheckCommand(ctx, &mcpsdk.CallToolRequest{}, CheckCommandInput{Command: "rm -rf ~"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Verdict != "block" || !strings.Contains(out.Reason, "Recursive delete from home") {
		t.Errorf("unexpected output %+v", out)
	}
	if out.Rule == "" {
		t.Error("blocked output should name the rule")
	}

	_, out, err = s.handleCheckCommand(ctx, &mcpsdk.CallToolRequest{}, CheckCommandInput{Command: "go test ./..."})
	if err != nil {
		t.Fatal(err)
	}
	if out.Verdict != "allow" || out.Reason != "" {
		t.Errorf("unexpected output %+v", out)
	}

	recs, err := audit.ReadAll(filepath.Join(root, "audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	for _, r := range recs {
		if r.SessionID != s.SessionID() {
			t.Errorf("record session %q, want %q", r.SessionID, s.SessionID())
		}
	}
}

func TestCheckFile(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		path string
		op   string
		want string
	}{
		{".env", "", "block"},
		{".env.example", "read", "allow"},
		{"certs/server.key", "write", "block"},
		{"main.go", "edit", "allow"},
	}
	for _, tt := range tests {
		_, out, err := s.handleCheckFile(ctx, &mcpsdk.CallToolRequest{}, CheckFileInput{Path: tt.path, Operation: tt.op})
		if err != nil {
			t.Fatalf("%s: %v", tt.path, err)
		}
		if out.Verdict != tt.want {
			t.Errorf("%s %s: got %s, want %s", tt.op, tt.path, out.Verdict, tt.want)
		}
	}

	if _, _, err := s.handleCheckFile(ctx, &mcpsdk.CallToolRequest{}, CheckFileInput{Path: "x", Operation: "delete"}); err == nil {
		t.Error("expected error for unknown operation")
	}
}

func TestValidateNewFile(t *testing.T) {
	s, root := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleValidateNewFile(ctx, &mcpsdk.CallToolRequest{}, NewFileInput{Dir: "docs", Ext: ".md"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Verdict != "block" {
		t.Errorf("empty dir should block, got %+v", out)
	}

	writeFile(t, root, "docs/plan.md", "# Plan")
	_, out, err = s.handleValidateNewFile(ctx, &mcpsdk.CallToolRequest{}, NewFileInput{Dir: "docs", Ext: ".md", MaxAge: "10m"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Verdict != "continue" || !strings.Contains(out.Message, "plan.md") {
		t.Errorf("unexpected output %+v", out)
	}

	if _, _, err := s.handleValidateNewFile(ctx, &mcpsdk.CallToolRequest{}, NewFileInput{Dir: "docs", MaxAge: "soon"}); err == nil {
		t.Error("expected error for invalid max_age")
	}
}

func TestValidateFileContains(t *testing.T) {
	s, root := newTestServer(t)
	ctx := context.Background()
	writeFile(t, root, "specs/feature.md", "## Requirements\n- one\n")

	_, out, err := s.handleValidateFileContains(ctx, &mcpsdk.CallToolRequest{}, FileContainsInput{
		Dir: "specs", Ext: ".md", Required: []string{"Requirements", "Timeline"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Verdict != "block" || !strings.HasSuffix(out.Reason, "missing required content: Timeline") {
		t.Errorf("unexpected output %+v", out)
	}

	writeFile(t, root, "specs/feature.md", "## Requirements\n## Timeline\n")
	_, out, err = s.handleValidateFileContains(ctx, &mcpsdk.CallToolRequest{}, FileContainsInput{
		Dir: "specs", Ext: ".md", Required: []string{"Requirements", "Timeline"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Verdict != "continue" {
		t.Errorf("unexpected output %+v", out)
	}
}

type failingEvaluator struct{}

func (failingEvaluator) Evaluate(context.Context, model.ActionRequest) (gate.Result, error) {
	return gate.Result{Decision: model.Blocked("policy gate unavailable (fail-closed): down", nil)}, errors.New("unreachable")
}

func TestEvaluatorErrorKeepsDecision(t *testing.T) {
	s := New(failingEvaluator{}, "")
	_, out, err := s.handleCheckCommand(context.Background(), &mcpsdk.CallToolRequest{}, CheckCommandInput{Command: "ls"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Verdict != "block" || out.Message != "unreachable" {
		t.Errorf("unexpected output %+v", out)
	}
}

func TestToolsListed(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	ct, st := mcpsdk.NewInMemoryTransports()
	ss, err := s.mcpServer.Connect(ctx, st, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ss.Close()

	c := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := c.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer cs.Close()

	res, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]bool)
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{
		"hookgate_check_command",
		"hookgate_check_file",
		"hookgate_validate_new_file",
		"hookgate_validate_file_contains",
		"hookgate_validate_setup",
	} {
		if !got[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}
