// Package diag writes JSON-lines diagnostics for the gate itself.
//
// Hook stdout belongs to the host protocol, so diagnostics go to a file
// (or any io.Writer). Level is read from HOOKGATE_LOG_LEVEL: "basic"
// (default) drops Debug lines, "verbose" keeps them.
package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/hookgate/internal/redact"
)

// Fields are structured key/value pairs attached to a line.
type Fields map[string]any

// Logger writes one JSON object per line. The zero value and a nil Logger
// discard everything.
type Logger struct {
	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	verbose bool
	now     func() time.Time
}

// New writes to w at the level named by HOOKGATE_LOG_LEVEL.
func New(w io.Writer) *Logger {
	return &Logger{w: w, verbose: levelFromEnv() == "verbose", now: time.Now}
}

// Open appends to the file at path, creating parent directories.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("diag: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("diag: open log: %w", err)
	}
	l := New(f)
	l.closer = f
	return l, nil
}

// Discard returns a Logger that writes nothing.
func Discard() *Logger { return nil }

// SetVerbose overrides the environment level.
func (l *Logger) SetVerbose(v bool) {
	if l != nil {
		l.verbose = v
	}
}

// Verbose reports whether Debug lines are written.
func (l *Logger) Verbose() bool { return l != nil && l.verbose }

func (l *Logger) Debug(msg string, fields Fields) {
	if l.Verbose() {
		l.write("debug", msg, fields)
	}
}

func (l *Logger) Info(msg string, fields Fields)  { l.write("info", msg, fields) }
func (l *Logger) Warn(msg string, fields Fields)  { l.write("warn", msg, fields) }
func (l *Logger) Error(msg string, fields Fields) { l.write("error", msg, fields) }

// Close closes the underlying file when the Logger owns one.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) write(level, msg string, fields Fields) {
	if l == nil || l.w == nil {
		return
	}
	payload := map[string]any{
		"ts":    l.now().UTC().Format(time.RFC3339Nano),
		"level": level,
		"msg":   msg,
	}
	for k, v := range fields {
		payload[k] = sanitize(v)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		b = []byte(fmt.Sprintf(`{"ts":%q,"level":"error","msg":"diag marshal failed","error":%q}`,
			l.now().UTC().Format(time.RFC3339Nano), err.Error()))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(append(b, '\n'))
}

func sanitize(v any) any {
	switch t := v.(type) {
	case string:
		return redact.Scrub(t)
	case []byte:
		return redact.Scrub(string(t))
	case error:
		return redact.Scrub(t.Error())
	default:
		return v
	}
}

func levelFromEnv() string {
	level := strings.ToLower(strings.TrimSpace(os.Getenv("HOOKGATE_LOG_LEVEL")))
	if level == "verbose" {
		return level
	}
	return "basic"
}
