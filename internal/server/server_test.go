package server

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ppiankov/hookgate/internal/audit"
	"github.com/ppiankov/hookgate/internal/gate"
	"github.com/ppiankov/hookgate/internal/model"
	"github.com/ppiankov/hookgate/internal/rpc"
	"github.com/ppiankov/hookgate/internal/rules"
)

const blockLsRules = `commands:
  - pattern: '^ls'
    description: No listing
`

// testServer starts an in-process server on a random port and returns a
// connection to it.
func testServer(t *testing.T, rulesPath string) (*Server, *grpc.ClientConn, string) {
	t.Helper()
	root := t.TempDir()
	al, err := audit.Open(filepath.Join(root, "audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	set, err := rules.Load(rulesPath)
	if err != nil {
		t.Fatal(err)
	}
	srv := New(gate.New(set, al, gate.WithRoot(root)), rulesPath, nil)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.ServeOn(lis)

	conn, err := grpc.NewClient(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpc.CodecName)),
	)
	if err != nil {
		srv.GracefulStop()
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		srv.GracefulStop()
	})
	return srv, conn, root
}

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func evaluate(t *testing.T, conn *grpc.ClientConn, req model.ActionRequest) *rpc.EvalResponse {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out := new(rpc.EvalResponse)
	if err := conn.Invoke(ctx, rpc.EvaluateMethod, &rpc.EvalRequest{Request: req}, out); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return out
}

func TestEvaluateOverRPC(t *testing.T) {
	_, conn, root := testServer(t, writeRules(t, "commands: []\n"))

	resp := evaluate(t, conn, model.ActionRequest{Kind: model.KindCommand, SessionID: "s1", Command: "rm -rf /"})
	if resp.Result.Decision.Verdict != model.Allow {
		t.Errorf("empty command table should allow, got %+v", resp.Result.Decision)
	}

	resp = evaluate(t, conn, model.ActionRequest{Kind: model.KindFileAccess, Path: ".env", Operation: model.OpRead})
	if resp.Result.Decision.Verdict != model.Block {
		t.Errorf("default protected paths should still block .env, got %+v", resp.Result.Decision)
	}
	if resp.Result.Record.PrevHash == "" || resp.AuditError != "" {
		t.Errorf("expected a chained record, got %+v err=%q", resp.Result.Record, resp.AuditError)
	}

	recs, err := audit.ReadAll(filepath.Join(root, "audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d audit records, want 2", len(recs))
	}
	if recs[0].SessionID != "s1" {
		t.Errorf("session id not recorded: %+v", recs[0])
	}
}

func TestCompletionOverRPCUsesServerRoot(t *testing.T) {
	_, conn, root := testServer(t, writeRules(t, ""))
	if err := os.MkdirAll(filepath.Join(root, "out"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "out", "report.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp := evaluate(t, conn, model.ActionRequest{
		Kind:       model.KindCompletion,
		Completion: &model.CompletionSpec{Check: model.CheckNewestFile, Dir: "out", Ext: ".md", MaxAge: time.Hour},
	})
	if resp.Result.Decision.Verdict != model.Allow {
		t.Errorf("fresh file should allow, got %+v", resp.Result.Decision)
	}
	if len(resp.Result.Steps) == 0 {
		t.Error("expected steps in the response")
	}
}

func TestStatus(t *testing.T) {
	rulesPath := writeRules(t, blockLsRules)
	srv, conn, root := testServer(t, rulesPath)

	out := new(rpc.StatusResponse)
	if err := conn.Invoke(context.Background(), rpc.StatusMethod, &rpc.StatusRequest{}, out); err != nil {
		t.Fatal(err)
	}
	if out.PolicyHash != srv.gate.PolicyHash() || out.Root != root || out.FailMode != "open" {
		t.Errorf("unexpected status %+v", out)
	}
	if out.AuditLog != filepath.Join(root, "audit.jsonl") {
		t.Errorf("audit log = %q", out.AuditLog)
	}
}

func TestReloadRules(t *testing.T) {
	rulesPath := writeRules(t, "commands: []\n")
	srv, conn, _ := testServer(t, rulesPath)
	before := srv.gate.PolicyHash()

	if err := os.WriteFile(rulesPath, []byte(blockLsRules), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := srv.ReloadRules(); err != nil {
		t.Fatal(err)
	}
	if srv.gate.PolicyHash() == before {
		t.Error("policy hash should change after reload")
	}
	resp := evaluate(t, conn, model.ActionRequest{Kind: model.KindCommand, Command: "ls -la"})
	if resp.Result.Decision.Verdict != model.Block || resp.Result.Decision.Rule == nil {
		t.Errorf("reloaded rule should block, got %+v", resp.Result.Decision)
	}
	if resp.Result.Record.PolicyHash != srv.gate.PolicyHash() {
		t.Error("record should carry the new policy hash")
	}
}

func TestReloadRulesKeepsOldOnError(t *testing.T) {
	rulesPath := writeRules(t, blockLsRules)
	srv, _, _ := testServer(t, rulesPath)
	before := srv.gate.PolicyHash()

	if err := os.WriteFile(rulesPath, []byte("commands:\n  - pattern: '('\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := srv.ReloadRules(); err == nil {
		t.Fatal("expected an error for an invalid pattern")
	}
	if srv.gate.PolicyHash() != before {
		t.Error("failed reload must keep the previous rules")
	}
}
