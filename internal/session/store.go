// Package session keeps per-session prompt history in SQLite.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// UnknownSession names prompts submitted without a session id.
const UnknownSession = "unknown"

// Prompt is one submitted prompt.
type Prompt struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Text      string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary describes one session.
type Summary struct {
	ID          string    `json:"session_id"`
	Prompts     int       `json:"prompts"`
	LastUpdated time.Time `json:"last_updated"`
}

// Store is a SQLite-backed prompt history. WAL plus busy_timeout lets hook
// processes for the same project write concurrently.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("session: create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		`PRAGMA busy_timeout=5000;`,
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("session: %s: %w", strings.TrimSuffix(pragma, ";"), err)
		}
	}
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  created_at TEXT NOT NULL,
  last_updated TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS prompts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL,
  prompt TEXT NOT NULL,
  created_at TEXT NOT NULL,
  FOREIGN KEY(session_id) REFERENCES sessions(id)
);
CREATE INDEX IF NOT EXISTS idx_prompts_session_id ON prompts(session_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("session: migrate: %w", err)
	}
	return nil
}

// AddPrompt appends prompt to the session's history.
func (s *Store) AddPrompt(ctx context.Context, sessionID, prompt string) (Prompt, error) {
	if sessionID == "" {
		sessionID = UnknownSession
	}
	ts := s.now().UTC()
	stamp := ts.Format(time.RFC3339Nano)

	var id int64
	err := execWithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions (id, created_at, last_updated) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET last_updated = excluded.last_updated`,
			sessionID, stamp, stamp); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO prompts (session_id, prompt, created_at) VALUES (?, ?, ?)`,
			sessionID, prompt, stamp)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return Prompt{}, fmt.Errorf("session: add prompt: %w", err)
	}
	return Prompt{ID: id, SessionID: sessionID, Text: prompt, CreatedAt: ts}, nil
}

// Prompts returns the session's prompts in insertion order.
func (s *Store) Prompts(ctx context.Context, sessionID string) ([]Prompt, error) {
	if sessionID == "" {
		sessionID = UnknownSession
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, prompt, created_at FROM prompts WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session: query prompts: %w", err)
	}
	defer rows.Close()

	var out []Prompt
	for rows.Next() {
		var p Prompt
		var created string
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Text, &created); err != nil {
			return nil, fmt.Errorf("session: scan prompt: %w", err)
		}
		p.CreatedAt = parseTime(created)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: iterate prompts: %w", err)
	}
	return out, nil
}

// LastPrompt returns the most recent prompt, or false when the session has none.
func (s *Store) LastPrompt(ctx context.Context, sessionID string) (Prompt, bool, error) {
	if sessionID == "" {
		sessionID = UnknownSession
	}
	var p Prompt
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, prompt, created_at FROM prompts WHERE session_id = ? ORDER BY id DESC LIMIT 1`,
		sessionID).Scan(&p.ID, &p.SessionID, &p.Text, &created)
	if err == sql.ErrNoRows {
		return Prompt{}, false, nil
	}
	if err != nil {
		return Prompt{}, false, fmt.Errorf("session: last prompt: %w", err)
	}
	p.CreatedAt = parseTime(created)
	return p, true, nil
}

// Sessions lists every session, most recently updated first.
func (s *Store) Sessions(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT s.id, COUNT(p.id), s.last_updated
FROM sessions s LEFT JOIN prompts p ON p.session_id = s.id
GROUP BY s.id
ORDER BY s.last_updated DESC, s.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("session: query sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var updated string
		if err := rows.Scan(&sum.ID, &sum.Prompts, &updated); err != nil {
			return nil, fmt.Errorf("session: scan session: %w", err)
		}
		sum.LastUpdated = parseTime(updated)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: iterate sessions: %w", err)
	}
	return out, nil
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// execWithRetry retries on SQLITE_BUSY beyond what busy_timeout absorbs.
func execWithRetry(fn func() error) error {
	const maxAttempts = 5
	backoff := 40 * time.Millisecond
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			if !isBusy(err) || attempt == maxAttempts {
				return err
			}
			time.Sleep(backoff)
			backoff *= 2
			continue
		}
		return nil
	}
	return lastErr
}

func isBusy(err error) bool {
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "DATABASE IS LOCKED")
}
