package policy

import (
	"fmt"
	"strings"

	"github.com/ppiankov/hookgate/internal/model"
)

// FailMode selects the verdict for requests that cannot be evaluated.
type FailMode string

const (
	// FailOpen defaults unparsable requests to an empty request, which allows.
	FailOpen FailMode = "open"
	// FailClosed blocks unparsable requests.
	FailClosed FailMode = "closed"
)

// ParseFailMode accepts "open", "closed" or "" (open).
func ParseFailMode(s string) (FailMode, error) {
	switch FailMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailOpen:
		return FailOpen, nil
	case FailClosed:
		return FailClosed, nil
	default:
		return "", fmt.Errorf("policy: unknown fail mode %q (want open or closed)", s)
	}
}

// Malformed returns the decision for a request whose payload could not be parsed.
// Fail-open returns ok=false: the caller evaluates the defaulted empty request.
func (m FailMode) Malformed() (model.Decision, bool) {
	if m == FailClosed {
		return model.Blocked("malformed request rejected (fail-closed)", nil), true
	}
	return model.Decision{}, false
}

// Unavailable returns the decision when the gate itself cannot be reached.
func (m FailMode) Unavailable(err error) model.Decision {
	if m == FailClosed {
		return model.Blocked(fmt.Sprintf("policy gate unavailable (fail-closed): %v", err), nil)
	}
	return model.Allowed()
}
