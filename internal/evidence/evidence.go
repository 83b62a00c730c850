// Package evidence gathers workspace facts for completion checks: files found
// by a directory scan and paths reported by version control. Evidence is
// collected fresh on every call and never cached.
package evidence

import (
	"context"
	"sort"
	"time"
)

// CandidateFile is a file discovered by a directory scan.
type CandidateFile struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mtime"`
	Size    int64     `json:"size"`
}

// StatusEntry is one line of version-control status output.
type StatusEntry struct {
	Path string `json:"path"`
	Code string `json:"code"`
}

// IsNew reports whether the entry is untracked or newly staged.
func (e StatusEntry) IsNew() bool {
	if e.Code == "??" {
		return true
	}
	// "A " staged, "AM" staged then modified. "AD" no longer exists on disk.
	return len(e.Code) == 2 && e.Code[0] == 'A' && e.Code[1] != 'D'
}

// FileScanner enumerates files under dir whose name ends with ext.
// A missing dir yields no files and no error.
type FileScanner interface {
	Scan(ctx context.Context, dir, ext string) ([]CandidateFile, error)
}

// StatusSource reports version-control status for paths under dir.
type StatusSource interface {
	Status(ctx context.Context, dir string) ([]StatusEntry, error)
}

// Recent keeps files whose age at now is at most maxAge.
func Recent(files []CandidateFile, now time.Time, maxAge time.Duration) []CandidateFile {
	var kept []CandidateFile
	for _, f := range files {
		if now.Sub(f.ModTime) <= maxAge {
			kept = append(kept, f)
		}
	}
	return kept
}

// Newest returns the file with the latest modification time. Ties are broken
// by the lexicographically smallest path so the result is independent of scan
// order. ok is false for an empty slice.
func Newest(files []CandidateFile) (CandidateFile, bool) {
	if len(files) == 0 {
		return CandidateFile{}, false
	}
	sorted := append([]CandidateFile(nil), files...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].ModTime.Equal(sorted[j].ModTime) {
			return sorted[i].ModTime.After(sorted[j].ModTime)
		}
		return sorted[i].Path < sorted[j].Path
	})
	return sorted[0], true
}
