package rules

import (
	"fmt"
	"testing"
)

func BenchmarkFirstMatch_NoMatch(b *testing.B) {
	s := NewDefault()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Commands.FirstMatch("go test ./... && git status")
	}
}

func BenchmarkFirstMatch_Match(b *testing.B) {
	s := NewDefault()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Commands.FirstMatch("rm -rf /")
	}
}

func BenchmarkFirstMatch_LargeTable(b *testing.B) {
	p := DefaultPatterns
	p.Commands = append([]Entry(nil), p.Commands...)
	for i := 0; i < 1000; i++ {
		p.Commands = append(p.Commands, Entry{Pattern: fmt.Sprintf(`blocked-tool-%d\s`, i)})
	}
	s, err := New(p)
	if err != nil {
		b.Fatalf("New: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Commands.FirstMatch("make build")
	}
}
