package evidence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirScanner walks the local filesystem.
type DirScanner struct {
	// Root anchors relative dirs. Reported paths stay relative to Root.
	// Empty means the process working directory.
	Root string
}

// Scan walks dir recursively and returns regular files whose name ends with
// ext. Unreadable subdirectories are skipped. Hidden VCS metadata (.git) is
// not descended into.
func (s DirScanner) Scan(ctx context.Context, dir, ext string) ([]CandidateFile, error) {
	walkDir := dir
	if s.Root != "" && !filepath.IsAbs(dir) {
		walkDir = filepath.Join(s.Root, dir)
	}
	info, err := os.Stat(walkDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("evidence: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("evidence: %s is not a directory", dir)
	}

	var files []CandidateFile
	err = filepath.WalkDir(walkDir, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" && path != walkDir {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			// removed between readdir and stat
			return nil
		}
		if walkDir != dir {
			if rel, err := filepath.Rel(s.Root, path); err == nil {
				path = rel
			}
		}
		files = append(files, CandidateFile{
			Path:    path,
			ModTime: fi.ModTime(),
			Size:    fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("evidence: walk %s: %w", dir, err)
	}
	return files, nil
}
