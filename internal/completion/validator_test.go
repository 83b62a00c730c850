package completion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/hookgate/internal/evidence"
	"github.com/ppiankov/hookgate/internal/model"
)

func TestNewestWithinWindow(t *testing.T) {
	scanner := &fakeScanner{files: []evidence.CandidateFile{file("specs/plan.md", 2*time.Minute)}}
	v := New(scanner, nil, WithClock(clock))

	f, err := v.Newest(context.Background(), "specs", ".md", 5*time.Minute)
	if err != nil {
		t.Fatalf("Newest: %v", err)
	}
	if f.Path != "specs/plan.md" {
		t.Errorf("expected specs/plan.md, got %s", f.Path)
	}

	_, err = v.Newest(context.Background(), "specs", ".md", time.Minute)
	if !errors.Is(err, ErrNoRecentFile) {
		t.Fatalf("expected ErrNoRecentFile with 1m window, got %v", err)
	}
}

func TestNewestFileVerdicts(t *testing.T) {
	scanner := &fakeScanner{files: []evidence.CandidateFile{
		file("specs/a.md", 4*time.Minute),
		file("specs/b.md", 1*time.Minute),
		file("specs/c.txt", 0),
	}}
	v := New(scanner, nil, WithClock(clock))

	r := v.NewestFile(context.Background(), "specs", ".md", 5*time.Minute)
	if r.Decision.Verdict != model.Continue {
		t.Fatalf("expected continue, got %+v", r.Decision)
	}
	if !strings.Contains(r.Decision.Message, "specs/b.md") {
		t.Errorf("expected newest file in message, got %q", r.Decision.Message)
	}

	r = v.NewestFile(context.Background(), "specs", ".md", 30*time.Second)
	if r.Decision.Verdict != model.Block {
		t.Fatalf("expected block, got %+v", r.Decision)
	}
	if !strings.Contains(r.Decision.Reason, "No recent .md files found in specs/") {
		t.Errorf("unexpected reason %q", r.Decision.Reason)
	}
}

func TestNewestFileMissingDir(t *testing.T) {
	v := New(&fakeScanner{}, nil, WithClock(clock))
	r := v.NewestFile(context.Background(), "nope", ".md", 5*time.Minute)
	if !r.Decision.IsBlock() {
		t.Fatalf("expected block for empty scan, got %+v", r.Decision)
	}
}

func TestNewestFileScanError(t *testing.T) {
	v := New(&fakeScanner{err: errBoom}, nil, WithClock(clock))
	r := v.NewestFile(context.Background(), "specs", ".md", 5*time.Minute)
	if !r.Decision.IsBlock() || !strings.Contains(r.Decision.Reason, "boom") {
		t.Fatalf("expected block naming scan error, got %+v", r.Decision)
	}
}

func TestNewestTieBreakDeterministic(t *testing.T) {
	scanner := &fakeScanner{files: []evidence.CandidateFile{
		file("specs/z.md", time.Minute),
		file("specs/m.md", time.Minute),
	}}
	v := New(scanner, nil, WithClock(clock))
	f, err := v.Newest(context.Background(), "specs", ".md", 0)
	if err != nil {
		t.Fatalf("Newest: %v", err)
	}
	if f.Path != "specs/m.md" {
		t.Errorf("expected lexicographic tie-break, got %s", f.Path)
	}
}

func TestNewFileFromStatusOnly(t *testing.T) {
	status := &fakeStatus{entries: []evidence.StatusEntry{
		{Path: "specs/new.md", Code: "??"},
		{Path: "specs/staged.md", Code: "A "},
		{Path: "specs/modified.md", Code: " M"},
		{Path: "specs/new.txt", Code: "??"},
	}}
	v := New(&fakeScanner{}, status, WithClock(clock))

	r := v.NewFile(context.Background(), "specs", ".md", 5*time.Minute)
	if r.Decision.Verdict != model.Continue {
		t.Fatalf("expected continue, got %+v", r.Decision)
	}
	want := "Found 2 new file(s): specs/new.md, specs/staged.md"
	if r.Decision.Message != want {
		t.Errorf("message = %q, want %q", r.Decision.Message, want)
	}
}

func TestNewFileUnionDeduplicates(t *testing.T) {
	status := &fakeStatus{entries: []evidence.StatusEntry{{Path: "specs/plan.md", Code: "??"}}}
	scanner := &fakeScanner{files: []evidence.CandidateFile{
		file("specs/plan.md", time.Minute),
		file("specs/edited.md", 2*time.Minute),
		file("specs/stale.md", time.Hour),
	}}
	v := New(scanner, status, WithClock(clock))

	r := v.NewFile(context.Background(), "specs", ".md", 5*time.Minute)
	want := "Found 2 new file(s): specs/edited.md, specs/plan.md"
	if r.Decision.Message != want {
		t.Errorf("message = %q, want %q", r.Decision.Message, want)
	}
}

func TestNewFileStatusFailureIsFailedStep(t *testing.T) {
	status := &fakeStatus{err: evidence.ErrTimeout}
	scanner := &fakeScanner{files: []evidence.CandidateFile{file("specs/plan.md", time.Minute)}}
	v := New(scanner, status, WithClock(clock))

	r := v.NewFile(context.Background(), "specs", ".md", 5*time.Minute)
	if r.Decision.Verdict != model.Continue {
		t.Fatalf("timeout must not block when scan finds files, got %+v", r.Decision)
	}
	if len(r.Steps) != 2 || r.Steps[0].OK || r.Steps[0].Name != "vcs status" {
		t.Errorf("expected failed vcs step first, got %+v", r.Steps)
	}
	if !r.Steps[1].OK {
		t.Errorf("expected recency scan to still run, got %+v", r.Steps[1])
	}
}

func TestNewFileNothingFound(t *testing.T) {
	v := New(&fakeScanner{}, &fakeStatus{}, WithClock(clock))
	r := v.NewFile(context.Background(), "specs/", ".py", 5*time.Minute)
	if !r.Decision.IsBlock() {
		t.Fatalf("expected block, got %+v", r.Decision)
	}
	want := "No new .py files found in specs/ within the last 5 minutes."
	if r.Decision.Reason != want {
		t.Errorf("reason = %q, want %q", r.Decision.Reason, want)
	}
}

func TestEmptyDirReadsAsCurrentDirectory(t *testing.T) {
	v := New(&fakeScanner{}, nil, WithClock(clock))
	ctx := context.Background()

	for _, check := range []model.CompletionCheck{model.CheckNewestFile, model.CheckNewFile} {
		r := v.Validate(ctx, model.CompletionSpec{Check: check, Ext: ".md"})
		if !r.Decision.IsBlock() {
			t.Fatalf("%s: expected block, got %+v", check, r.Decision)
		}
		if !strings.Contains(r.Decision.Reason, "found in ./ within") {
			t.Errorf("%s: reason = %q", check, r.Decision.Reason)
		}
	}
	r := v.NewFile(ctx, "", ".md", 5*time.Minute)
	if strings.Contains(r.Decision.Reason, "in / ") {
		t.Errorf("empty dir rendered as filesystem root: %q", r.Decision.Reason)
	}
}

func TestFileContainsAllPresent(t *testing.T) {
	scanner := &fakeScanner{files: []evidence.CandidateFile{file("specs/plan.md", time.Minute)}}
	v := New(scanner, nil, WithClock(clock), WithReadFile(contents(map[string]string{
		"specs/plan.md": "# Plan\n## Requirements\n...\n## Timeline\n",
	})))

	r := v.FileContains(context.Background(), "specs", ".md", 5*time.Minute, []string{"Requirements", "Timeline"})
	if r.Decision.Verdict != model.Continue {
		t.Fatalf("expected continue, got %+v", r.Decision)
	}
}

func TestFileContainsNamesOnlyMissing(t *testing.T) {
	scanner := &fakeScanner{files: []evidence.CandidateFile{file("specs/plan.md", time.Minute)}}
	v := New(scanner, nil, WithClock(clock), WithReadFile(contents(map[string]string{
		"specs/plan.md": "## Requirements\n",
	})))

	r := v.FileContains(context.Background(), "specs", ".md", 5*time.Minute, []string{"Requirements", "Timeline"})
	if !r.Decision.IsBlock() {
		t.Fatalf("expected block, got %+v", r.Decision)
	}
	want := "File specs/plan.md is missing required content: Timeline"
	if r.Decision.Reason != want {
		t.Errorf("reason = %q, want %q", r.Decision.Reason, want)
	}
}

func TestFileContainsChecksNewestOnly(t *testing.T) {
	scanner := &fakeScanner{files: []evidence.CandidateFile{
		file("specs/old.md", 3*time.Minute),
		file("specs/new.md", time.Minute),
	}}
	v := New(scanner, nil, WithClock(clock), WithReadFile(contents(map[string]string{
		"specs/old.md": "Requirements Timeline",
		"specs/new.md": "empty",
	})))

	r := v.FileContains(context.Background(), "specs", ".md", 5*time.Minute, []string{"Requirements", "Timeline"})
	if !strings.HasSuffix(r.Decision.Reason, "missing required content: Requirements, Timeline") {
		t.Errorf("expected both missing from newest file, got %q", r.Decision.Reason)
	}
}

func TestFileContainsNoRecentFileBlocksImmediately(t *testing.T) {
	read := 0
	v := New(&fakeScanner{}, nil, WithClock(clock), WithReadFile(func(string) ([]byte, error) {
		read++
		return nil, nil
	}))
	r := v.FileContains(context.Background(), "specs", ".md", 5*time.Minute, []string{"x"})
	if !r.Decision.IsBlock() {
		t.Fatalf("expected block, got %+v", r.Decision)
	}
	if read != 0 {
		t.Error("must not read when lookup fails")
	}
}

func TestFileContainsReadError(t *testing.T) {
	scanner := &fakeScanner{files: []evidence.CandidateFile{file("specs/gone.md", time.Minute)}}
	v := New(scanner, nil, WithClock(clock), WithReadFile(contents(nil)))
	r := v.FileContains(context.Background(), "specs", ".md", 5*time.Minute, []string{"x"})
	if !r.Decision.IsBlock() || !strings.Contains(r.Decision.Reason, "could not be read") {
		t.Fatalf("expected read failure block, got %+v", r.Decision)
	}
}

func TestFileContainsNoRequirements(t *testing.T) {
	scanner := &fakeScanner{files: []evidence.CandidateFile{file("specs/plan.md", time.Minute)}}
	v := New(scanner, nil, WithClock(clock), WithReadFile(contents(map[string]string{"specs/plan.md": ""})))
	r := v.FileContains(context.Background(), "specs", ".md", 5*time.Minute, nil)
	if r.Decision.Verdict != model.Continue {
		t.Fatalf("expected continue with nothing required, got %+v", r.Decision)
	}
}

func TestValidatorIdempotent(t *testing.T) {
	scanner := &fakeScanner{files: []evidence.CandidateFile{file("specs/plan.md", time.Minute)}}
	status := &fakeStatus{entries: []evidence.StatusEntry{{Path: "specs/x.md", Code: "??"}}}
	v := New(scanner, status, WithClock(clock))

	spec := model.CompletionSpec{Check: model.CheckNewFile, Dir: "specs", Ext: ".md", MaxAge: 5 * time.Minute}
	first := v.Validate(context.Background(), spec)
	second := v.Validate(context.Background(), spec)
	if first.Decision != second.Decision {
		t.Errorf("expected identical decisions, got %+v and %+v", first.Decision, second.Decision)
	}
	if scanner.calls != 2 {
		t.Errorf("evidence must be gathered on every call, got %d scans", scanner.calls)
	}
}

func TestValidateDispatch(t *testing.T) {
	scanner := &fakeScanner{files: []evidence.CandidateFile{file("specs/plan.md", time.Minute)}}
	v := New(scanner, nil, WithClock(clock), WithReadFile(contents(map[string]string{"specs/plan.md": "Timeline"})))
	ctx := context.Background()

	tests := []struct {
		spec model.CompletionSpec
		want model.Verdict
	}{
		{model.CompletionSpec{Check: model.CheckNewestFile, Dir: "specs", Ext: ".md"}, model.Continue},
		{model.CompletionSpec{Check: model.CheckNewFile, Dir: "specs", Ext: ".md"}, model.Continue},
		{model.CompletionSpec{Check: model.CheckFileContains, Dir: "specs", Ext: ".md", Required: []string{"Timeline"}}, model.Continue},
		{model.CompletionSpec{Check: model.CheckFileContains, Dir: "specs", Ext: ".md", Required: []string{"Budget"}}, model.Block},
		{model.CompletionSpec{Check: "bogus"}, model.Block},
	}
	for _, tt := range tests {
		if got := v.Validate(ctx, tt.spec).Decision.Verdict; got != tt.want {
			t.Errorf("Validate(%s) = %s, want %s", tt.spec.Check, got, tt.want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	tests := map[time.Duration]string{
		time.Minute:      "1 minute",
		5 * time.Minute:  "5 minutes",
		90 * time.Second: "1m30s",
	}
	for d, want := range tests {
		if got := formatAge(d); got != want {
			t.Errorf("formatAge(%s) = %q, want %q", d, got, want)
		}
	}
}
