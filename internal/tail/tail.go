// Package tail implements incremental reads of growing log files. A
// Cursor records how far into a file the caller has consumed; ReadNew
// returns only the newline-terminated lines that appeared since.
package tail

import (
	"bytes"
	"io"
	"os"
)

// Cursor tracks read progress through one log file.
type Cursor struct {
	// Offset is the byte offset of the last byte already consumed.
	Offset int64

	// Remainder holds bytes read past the last newline. They are
	// prepended to the next read so a record flushed in two writes is
	// parsed exactly once.
	Remainder []byte
}

// AtEnd returns a cursor positioned at the file's current end, with no
// remainder. Used when resuming a known session: history is skipped, only
// new records are tailed. A missing file yields the zero cursor.
func AtEnd(path string) Cursor {
	info, err := os.Stat(path)
	if err != nil {
		return Cursor{}
	}
	return Cursor{Offset: info.Size()}
}

// ReadNew reads the bytes appended to path since cur and splits them into
// complete lines. The final unterminated fragment is carried in the
// returned cursor's Remainder. A stat or open failure is treated the same
// as "no new data" -- the file may simply not exist yet.
//
// If the file is smaller than the cursor's offset the file was truncated
// or replaced; the cursor resets to the start of the file and any
// remainder is discarded, replaying records already seen for that file.
func ReadNew(path string, cur Cursor) ([][]byte, Cursor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, cur, nil
	}

	size := info.Size()
	if size < cur.Offset {
		// Truncation or rotation underneath us. Start over.
		cur = Cursor{}
	}
	if size == cur.Offset {
		return nil, cur, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, cur, nil
	}
	defer f.Close()

	if cur.Offset > 0 {
		if _, err := f.Seek(cur.Offset, io.SeekStart); err != nil {
			return nil, cur, err
		}
	}

	delta := make([]byte, size-cur.Offset)
	n, err := io.ReadFull(f, delta)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, cur, err
	}
	delta = delta[:n]
	if n == 0 {
		return nil, cur, nil
	}

	buf := append(append([]byte{}, cur.Remainder...), delta...)
	parts := bytes.Split(buf, []byte{'\n'})

	// All but the final fragment are complete lines; the final fragment
	// (possibly empty) becomes the new remainder.
	lines := make([][]byte, 0, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		if len(p) > 0 {
			lines = append(lines, p)
		}
	}

	next := Cursor{
		Offset:    cur.Offset + int64(n),
		Remainder: parts[len(parts)-1],
	}
	if len(next.Remainder) == 0 {
		next.Remainder = nil
	}
	return lines, next, nil
}
