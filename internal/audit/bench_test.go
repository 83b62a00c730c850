package audit

import (
	"path/filepath"
	"testing"
)

func BenchmarkAppend(b *testing.B) {
	l, err := Open(filepath.Join(b.TempDir(), "bench.jsonl"))
	if err != nil {
		b.Fatal(err)
	}
	rec := testRecord("allow")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Append(rec)
	}
}

func BenchmarkVerify1K(b *testing.B) {
	path := filepath.Join(b.TempDir(), "bench.jsonl")
	writeChain(b, path, 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Verify(path)
	}
}
