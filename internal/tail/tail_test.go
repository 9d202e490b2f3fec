package tail

import (
	"os"
	"path/filepath"
	"testing"
)

func appendFile(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(data); err != nil {
		t.Fatal(err)
	}
	f.Close()
}

func TestReadNewMissingFile(t *testing.T) {
	lines, cur, err := ReadNew(filepath.Join(t.TempDir(), "nope.jsonl"), Cursor{})
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(lines) != 0 || cur.Offset != 0 {
		t.Errorf("expected no lines and zero cursor, got %d lines offset %d", len(lines), cur.Offset)
	}
}

func TestReadNewCompleteLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	appendFile(t, path, "{\"a\":1}\n{\"b\":2}\n")

	lines, cur, err := ReadNew(path, Cursor{})
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if string(lines[0]) != `{"a":1}` || string(lines[1]) != `{"b":2}` {
		t.Errorf("unexpected lines: %q %q", lines[0], lines[1])
	}
	if cur.Offset != 16 {
		t.Errorf("expected offset 16, got %d", cur.Offset)
	}
	if cur.Remainder != nil {
		t.Errorf("expected nil remainder, got %q", cur.Remainder)
	}
}

func TestReadNewPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")

	// First write: one complete line and the beginning of a second.
	appendFile(t, path, "{\"a\":1}\n{\"b\":2")
	lines, cur, err := ReadNew(path, Cursor{})
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || string(lines[0]) != `{"a":1}` {
		t.Fatalf("expected one complete line, got %v", lines)
	}
	if string(cur.Remainder) != `{"b":2` {
		t.Errorf("expected remainder to carry the fragment, got %q", cur.Remainder)
	}

	// No new bytes: idempotent no-op.
	lines, cur2, err := ReadNew(path, cur)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 0 {
		t.Errorf("expected no lines on re-read, got %d", len(lines))
	}
	if cur2.Offset != cur.Offset {
		t.Errorf("offset moved without new data: %d vs %d", cur2.Offset, cur.Offset)
	}

	// Completing the line yields exactly one parse of the whole record.
	appendFile(t, path, "}\n")
	lines, cur, err = ReadNew(path, cur)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || string(lines[0]) != `{"b":2}` {
		t.Fatalf("expected reassembled line {\"b\":2}, got %v", lines)
	}
	if cur.Remainder != nil {
		t.Errorf("expected empty remainder, got %q", cur.Remainder)
	}
}

func TestReadNewExactlyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	cur := Cursor{}
	var total int

	writes := []string{"{\"n\":1}\n", "{\"n\":2}\n{\"n\":3}\n", "{\"n\":4}\n"}
	for _, w := range writes {
		appendFile(t, path, w)
		lines, next, err := ReadNew(path, cur)
		if err != nil {
			t.Fatal(err)
		}
		total += len(lines)
		cur = next
	}

	if total != 4 {
		t.Errorf("expected 4 lines total across reads, got %d", total)
	}
	info, _ := os.Stat(path)
	if cur.Offset != info.Size() {
		t.Errorf("cursor offset %d should equal file size %d", cur.Offset, info.Size())
	}
}

func TestReadNewTruncationResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	appendFile(t, path, "{\"a\":1}\n{\"b\":2}\n")
	_, cur, err := ReadNew(path, Cursor{})
	if err != nil {
		t.Fatal(err)
	}

	// Replace the file with shorter content.
	if err := os.WriteFile(path, []byte("{\"c\":3}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	lines, cur, err := ReadNew(path, cur)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || string(lines[0]) != `{"c":3}` {
		t.Fatalf("expected replayed read from start after truncation, got %v", lines)
	}
	if cur.Offset != 8 {
		t.Errorf("expected offset 8 after reset, got %d", cur.Offset)
	}
}

func TestAtEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	appendFile(t, path, "{\"old\":true}\n")

	cur := AtEnd(path)
	if cur.Offset == 0 {
		t.Fatal("expected non-zero offset for existing file")
	}

	// Nothing replayed; only new writes are seen.
	lines, cur, err := ReadNew(path, cur)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 0 {
		t.Errorf("expected no replay of history, got %d lines", len(lines))
	}

	appendFile(t, path, "{\"new\":true}\n")
	lines, _, err = ReadNew(path, cur)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || string(lines[0]) != `{"new":true}` {
		t.Errorf("expected only the new line, got %v", lines)
	}
}
