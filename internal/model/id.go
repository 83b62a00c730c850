package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewSessionID returns "<prefix>-<12 hex chars>" for requests that arrive
// without a host session id.
func NewSessionID(prefix string) string {
	if prefix == "" {
		prefix = "s"
	}
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s-%x", prefix, time.Now().UnixNano())
	}
	return prefix + "-" + hex.EncodeToString(b)
}
