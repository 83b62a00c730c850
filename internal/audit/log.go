package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// GenesisHash is the prev_hash for the first record in a new audit log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// Log is an append-only JSONL audit log with SHA-256 hash chaining.
// Each record's prev_hash is the hash of the previous JSON line.
//
// The file may be shared by several processes. Every append holds an
// exclusive file lock and reads the chain tail from disk under that lock,
// so writers never fork the chain or overwrite each other.
type Log struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// Open prepares an audit log at path. The file itself is created on first append.
func Open(path string) (*Log, error) {
	if path == "" {
		return nil, fmt.Errorf("audit: empty log path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}
	return &Log{path: path, now: time.Now}, nil
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Append chains rec onto the log and returns it as written.
// Timestamp is filled in when empty; PrevHash is always overwritten.
func (l *Log) Append(rec Record) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return rec, fmt.Errorf("audit: open file: %w", err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return rec, fmt.Errorf("audit: lock: %w", err)
	}
	defer unlockFile(f)

	last, torn, err := lastLine(f)
	if err != nil {
		return rec, fmt.Errorf("audit: read chain tail: %w", err)
	}

	if rec.Timestamp == "" {
		rec.Timestamp = l.now().UTC().Format(TimestampFormat)
	}
	rec.PrevHash = GenesisHash
	if len(last) > 0 {
		rec.PrevHash = HashLine(last)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return rec, fmt.Errorf("audit: marshal record: %w", err)
	}
	buf := make([]byte, 0, len(line)+2)
	if torn {
		buf = append(buf, '\n')
	}
	buf = append(append(buf, line...), '\n')

	if _, err := f.Write(buf); err != nil {
		return rec, fmt.Errorf("audit: write record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return rec, fmt.Errorf("audit: sync: %w", err)
	}
	return rec, nil
}

// Close is a no-op kept so callers can defer it; files are held only
// for the duration of an append.
func (l *Log) Close() error { return nil }

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}

// lastLine returns the final non-empty line of f. torn reports that the
// file does not end in a newline (an interrupted write).
func lastLine(f *os.File) (line []byte, torn bool, err error) {
	info, err := f.Stat()
	if err != nil {
		return nil, false, err
	}
	size := info.Size()
	if size == 0 {
		return nil, false, nil
	}

	const chunk = 4096
	var buf []byte
	for end := size; end > 0; {
		start := max(end-chunk, 0)
		b := make([]byte, end-start)
		if _, err := f.ReadAt(b, start); err != nil && err != io.EOF {
			return nil, false, err
		}
		buf = append(b, buf...)
		if end == size {
			torn = buf[len(buf)-1] != '\n'
		}
		trimmed := bytes.TrimRight(buf, "\n")
		if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
			return trimmed[i+1:], torn, nil
		}
		end = start
	}
	return bytes.TrimRight(buf, "\n"), torn, nil
}
