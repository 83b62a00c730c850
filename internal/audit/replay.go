package audit

import (
	"time"

	"github.com/ppiankov/hookgate/internal/model"
)

// ReplayFilter holds filtering criteria for session replay.
type ReplayFilter struct {
	SessionID string    // empty = every session
	Kind      string    // empty = every action kind
	From      time.Time // zero value = no lower bound
	To        time.Time // zero value = no upper bound
}

// ReplaySummary holds verdict counts and time bounds for a replay.
type ReplaySummary struct {
	Total          int            `json:"total"`
	AllowCount     int            `json:"allow_count"`
	BlockCount     int            `json:"block_count"`
	ContinueCount  int            `json:"continue_count"`
	Kinds          map[string]int `json:"kinds,omitempty"`
	FirstTimestamp string         `json:"first_timestamp,omitempty"`
	LastTimestamp  string         `json:"last_timestamp,omitempty"`
}

// ReplayResult holds filtered records and their summary.
type ReplayResult struct {
	SessionID string        `json:"session_id,omitempty"`
	Records   []Record      `json:"records"`
	Summary   ReplaySummary `json:"summary"`
}

// Replay reads the audit log and returns records matching the filter.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	result := &ReplayResult{SessionID: filter.SessionID}
	err := each(path, func(rec Record) {
		if !filter.match(rec) {
			return
		}
		result.Records = append(result.Records, rec)
		result.Summary.add(rec)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (f ReplayFilter) match(rec Record) bool {
	if f.SessionID != "" && rec.SessionID != f.SessionID {
		return false
	}
	if f.Kind != "" && rec.Action.Kind != f.Kind {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts := rec.Time()
	if ts.IsZero() {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}
	return true
}

func (s *ReplaySummary) add(rec Record) {
	s.Total++
	switch model.Verdict(rec.Verdict) {
	case model.Allow:
		s.AllowCount++
	case model.Block:
		s.BlockCount++
	case model.Continue:
		s.ContinueCount++
	}
	if s.Kinds == nil {
		s.Kinds = make(map[string]int)
	}
	s.Kinds[rec.Action.Kind]++
	if s.FirstTimestamp == "" {
		s.FirstTimestamp = rec.Timestamp
	}
	s.LastTimestamp = rec.Timestamp
}
