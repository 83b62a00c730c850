package audit

import (
	"time"

	"github.com/ppiankov/hookgate/internal/model"
)

// TimestampFormat is the layout used in audit record timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Action is the flattened request recorded in each audit record.
type Action struct {
	Kind     string `json:"kind"`
	Tool     string `json:"tool,omitempty"`
	Resource string `json:"resource"`
}

// Record is one line in the hash-chained JSONL audit log.
// Struct fields only, so json.Marshal output is stable for hashing.
type Record struct {
	Timestamp  string `json:"ts"`
	SessionID  string `json:"session_id,omitempty"`
	Action     Action `json:"action"`
	Verdict    string `json:"verdict"`
	Reason     string `json:"reason,omitempty"`
	Rule       string `json:"rule,omitempty"`
	PolicyHash string `json:"policy_hash"`
	PrevHash   string `json:"prev_hash"`
}

// NewRecord flattens a request and the decision rendered for it.
func NewRecord(req model.ActionRequest, d model.Decision, policyHash string) Record {
	rec := Record{
		SessionID: req.SessionID,
		Action: Action{
			Kind:     string(req.Kind),
			Tool:     req.Tool,
			Resource: req.Resource(),
		},
		Verdict:    string(d.Verdict),
		Reason:     d.Reason,
		PolicyHash: policyHash,
	}
	if rec.Reason == "" {
		rec.Reason = d.Message
	}
	if d.Rule != nil {
		rec.Rule = d.Rule.Pattern
	}
	return rec
}

// Time parses the record timestamp. The zero time is returned on error.
func (r Record) Time() time.Time {
	t, err := time.Parse(TimestampFormat, r.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
