package completion

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/hookgate/internal/evidence"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type fakeScanner struct {
	files []evidence.CandidateFile
	err   error
	calls int
}

func (f *fakeScanner) Scan(_ context.Context, dir, ext string) ([]evidence.CandidateFile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []evidence.CandidateFile
	for _, c := range f.files {
		if strings.HasPrefix(c.Path, dir+"/") && strings.HasSuffix(c.Path, ext) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeStatus struct {
	entries []evidence.StatusEntry
	err     error
}

func (f *fakeStatus) Status(context.Context, string) ([]evidence.StatusEntry, error) {
	return f.entries, f.err
}

type fakeProbe struct {
	ok  bool
	err error
}

func (f fakeProbe) IsRepo(context.Context, string) (bool, error) {
	return f.ok, f.err
}

func file(path string, age time.Duration) evidence.CandidateFile {
	return evidence.CandidateFile{Path: path, ModTime: now.Add(-age), Size: 1}
}

func contents(m map[string]string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		s, ok := m[path]
		if !ok {
			return nil, os.ErrNotExist
		}
		return []byte(s), nil
	}
}

var errBoom = errors.New("boom")
