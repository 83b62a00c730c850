package completion

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/hookgate/internal/evidence"
)

// initNestedProject creates a repository whose project root is repo/svc.
func initNestedProject(t *testing.T) (repo, root string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	repo = t.TempDir()
	if out, err := exec.Command("git", "-C", repo, "init", "-q").CombinedOutput(); err != nil {
		t.Fatalf("git init: %v: %s", err, out)
	}
	root = filepath.Join(repo, "svc")
	if err := os.MkdirAll(filepath.Join(root, "specs"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "specs", "plan.md"), []byte("# Plan\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return repo, root
}

func TestNewFileNestedProjectRootCountsOnce(t *testing.T) {
	_, root := initNestedProject(t)
	v := New(evidence.DirScanner{Root: root}, evidence.GitStatus{WorkDir: root})

	r := v.NewFile(context.Background(), "specs", ".md", 5*time.Minute)
	want := "Found 1 new file(s): " + filepath.Join("specs", "plan.md")
	if r.Decision.Message != want {
		t.Errorf("message = %q, want %q", r.Decision.Message, want)
	}
}

func TestNewFileAbsoluteDirCountsOnce(t *testing.T) {
	_, root := initNestedProject(t)
	v := New(evidence.DirScanner{Root: root}, evidence.GitStatus{WorkDir: root})

	dir := filepath.Join(root, "specs")
	r := v.NewFile(context.Background(), dir, ".md", 5*time.Minute)
	want := "Found 1 new file(s): " + filepath.Join(dir, "plan.md")
	if r.Decision.Message != want {
		t.Errorf("message = %q, want %q", r.Decision.Message, want)
	}
}
