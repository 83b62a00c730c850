package audit

import (
	"os"
	"path/filepath"
	"testing"
)

func FuzzVerify(f *testing.F) {
	validLog := filepath.Join(f.TempDir(), "valid.jsonl")
	writeChain(f, validLog, 3)
	validData, _ := os.ReadFile(validLog)
	f.Add(validData)
	f.Add([]byte{})
	f.Add([]byte(`{"not":"a valid record"}` + "\n"))
	f.Add([]byte(`not json`))

	f.Fuzz(func(t *testing.T, data []byte) {
		tmpFile := filepath.Join(t.TempDir(), "fuzz.jsonl")
		os.WriteFile(tmpFile, data, 0600)
		Verify(tmpFile)
	})
}

func FuzzLastLine(f *testing.F) {
	f.Add([]byte("a\nb\n"))
	f.Add([]byte("\n\n"))
	f.Add([]byte("torn"))

	f.Fuzz(func(t *testing.T, data []byte) {
		path := filepath.Join(t.TempDir(), "tail.jsonl")
		os.WriteFile(path, data, 0600)
		fh, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		defer fh.Close()
		line, _, err := lastLine(fh)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range line {
			if c == '\n' {
				t.Fatalf("last line contains newline: %q", line)
			}
		}
	})
}
