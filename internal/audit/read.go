package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

const maxLineSize = 1024 * 1024

// ReadAll returns every parseable record in file order. Malformed lines are
// skipped. A missing file yields no records.
func ReadAll(path string) ([]Record, error) {
	var out []Record
	err := each(path, func(rec Record) { out = append(out, rec) })
	return out, err
}

// Tail returns the last n records in file order.
func Tail(path string, n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}
	ring := make([]Record, 0, n)
	err := each(path, func(rec Record) {
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, rec)
	})
	return ring, err
}

func each(path string, fn func(Record)) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		fn(rec)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("audit: read log: %w", err)
	}
	return nil
}
