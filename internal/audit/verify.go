package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/hookgate/internal/model"
)

// VerifyResult holds the outcome of a hash chain verification.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Verify reads a JSONL audit log and validates the hash chain and verdict
// vocabulary. A missing file is an empty, valid log.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return VerifyResult{Valid: true}
	}
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0
	expected := GenesisHash

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return VerifyResult{Lines: lineNum - 1, Error: fmt.Sprintf("parse error: %v", err), ErrorLine: lineNum}
		}
		if rec.PrevHash != expected {
			msg := fmt.Sprintf("hash mismatch: expected %s, got %s", expected, rec.PrevHash)
			if lineNum == 1 {
				msg = fmt.Sprintf("first record prev_hash is %q, expected genesis hash", rec.PrevHash)
			}
			return VerifyResult{Lines: lineNum - 1, Error: msg, ErrorLine: lineNum}
		}
		switch model.Verdict(rec.Verdict) {
		case model.Allow, model.Block, model.Continue:
		default:
			return VerifyResult{Lines: lineNum - 1, Error: fmt.Sprintf("unknown verdict %q", rec.Verdict), ErrorLine: lineNum}
		}
		expected = HashLine(line)
	}

	if err := scanner.Err(); err != nil {
		return VerifyResult{Lines: lineNum, Error: fmt.Sprintf("scan: %v", err)}
	}
	return VerifyResult{Valid: true, Lines: lineNum}
}
