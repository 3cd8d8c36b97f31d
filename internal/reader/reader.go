package reader

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/zibo-chen/logline/internal/buffer"
	"github.com/zibo-chen/logline/internal/encoding"
	"github.com/zibo-chen/logline/internal/mmapio"
	"github.com/zibo-chen/logline/internal/tail"
)

// Cursor tracks how far into the file the reader has consumed: the byte
// offset of the next unread byte and the number of lines produced so far.
// The offset only moves forward, except for the reset to zero on rotation.
type Cursor struct {
	Offset int64
	Lines  int
}

// Options configures a Reader
type Options struct {
	Codec         encoding.Codec
	MaxLineLength int                 // longer lines are truncated; 0 disables
	ScanChunkSize int                 // backward-scan granularity for tail/history loads
	Enrich        func(*buffer.Entry) // optional level/timestamp detection hook
}

// Reader turns a growing file into decoded, numbered entries. It owns the
// cursor and performs all three read operations: the initial tail load,
// incremental forward reads, and backward history loads. A single goroutine
// drives it; it is not safe for concurrent use.
type Reader struct {
	path   string
	opts   Options
	cursor Cursor

	// Rotation observed but not yet reported: set when a shrink resets the
	// cursor, cleared only once a read succeeds and returns rotated=true.
	// Keeps the reset from being lost when the read after the shrink fails.
	pendingReset bool
}

// truncationMark is appended to lines cut at MaxLineLength
const truncationMark = " [truncated]"

// New creates a reader for the file at path
func New(path string, opts Options) *Reader {
	return &Reader{path: path, opts: opts}
}

// Path returns the file path
func (r *Reader) Path() string {
	return r.path
}

// Cursor returns the current read position
func (r *Reader) Cursor() Cursor {
	return r.cursor
}

// ReadTail loads the last maxLines lines and positions the cursor at the
// end of the file so subsequent incremental reads continue from there.
// Returns the entries, the byte offset of the first loaded line, and the
// file's total line count.
func (r *Reader) ReadTail(maxLines int) ([]*buffer.Entry, int64, int, error) {
	f, err := mmapio.OpenMapped(r.path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	chunk, total, err := tail.NewScanner(f, r.opts.ScanChunkSize).Tail(maxLines)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("tail %s: %w", r.path, err)
	}

	first := total - len(chunk.Lines) + 1
	entries := make([]*buffer.Entry, len(chunk.Lines))
	for i, line := range chunk.Lines {
		entries[i] = r.makeEntry(line.Content, first+i, line.Offset)
	}

	r.cursor = Cursor{Offset: f.Size(), Lines: total}
	r.pendingReset = false
	return entries, chunk.StartOffset, total, nil
}

// ReadPreviousChunk loads up to maxLines lines preceding the given byte
// offset. Entries carry a zero line number; the window assigns numbers
// backward from its first line when prepending. An empty result means the
// beginning of the file has already been loaded.
func (r *Reader) ReadPreviousChunk(before int64, maxLines int) ([]*buffer.Entry, int64, error) {
	if before <= 0 {
		return nil, 0, nil
	}

	f, err := mmapio.OpenMapped(r.path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	chunk, err := tail.NewScanner(f, r.opts.ScanChunkSize).Previous(before, maxLines)
	if err != nil {
		return nil, 0, fmt.Errorf("history %s: %w", r.path, err)
	}

	entries := make([]*buffer.Entry, len(chunk.Lines))
	for i, line := range chunk.Lines {
		entries[i] = r.makeEntry(line.Content, 0, line.Offset)
	}
	return entries, chunk.StartOffset, nil
}

// HasNewContent reports whether the file size differs from the cursor
// offset. Growth means new lines; shrinkage means the file was rotated,
// which the next ReadNewLines handles.
func (r *Reader) HasNewContent() (bool, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", r.path, err)
	}
	return r.pendingReset || info.Size() != r.cursor.Offset, nil
}

// ReadNewLines reads from the cursor to the end of the file and returns the
// newly produced entries. A file smaller than the cursor offset is a
// rotation: the cursor resets to zero, rotated is true, and reading
// proceeds from the start so numbering restarts at line 1. Already-consumed
// bytes are never re-read.
func (r *Reader) ReadNewLines() (entries []*buffer.Entry, rotated bool, err error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return nil, false, fmt.Errorf("stat %s: %w", r.path, err)
	}
	size := info.Size()

	if size < r.cursor.Offset {
		r.cursor = Cursor{}
		r.pendingReset = true
	}
	if size == r.cursor.Offset {
		rotated, r.pendingReset = r.pendingReset, false
		return nil, rotated, nil
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	// Bounded by the size observed at poll time
	data, err := io.ReadAll(io.NewSectionReader(f, r.cursor.Offset, size-r.cursor.Offset))
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", r.path, err)
	}

	base := r.cursor.Offset
	consumed := 0
	for consumed < len(data) {
		rest := data[consumed:]
		lineLen := bytes.IndexByte(rest, '\n')
		advance := lineLen + 1
		if lineLen == -1 {
			// Unterminated final line: emit it and consume to EOF
			lineLen = len(rest)
			advance = lineLen
		}

		r.cursor.Lines++
		entries = append(entries, r.makeEntry(
			bytes.TrimRight(rest[:lineLen], "\r"),
			r.cursor.Lines,
			base+int64(consumed),
		))
		consumed += advance
	}

	r.cursor.Offset = base + int64(consumed)
	rotated, r.pendingReset = r.pendingReset, false
	return entries, rotated, nil
}

// makeEntry decodes raw line bytes into an Entry, applying the line length
// cap and the optional enrichment hook
func (r *Reader) makeEntry(raw []byte, lineNumber int, byteOffset int64) *buffer.Entry {
	truncated := false
	if r.opts.MaxLineLength > 0 && len(raw) > r.opts.MaxLineLength {
		raw = raw[:r.opts.MaxLineLength]
		truncated = true
	}

	content := r.opts.Codec.Decode(raw)
	if truncated {
		content += truncationMark
	}

	e := &buffer.Entry{
		LineNumber: lineNumber,
		Content:    content,
		ByteOffset: byteOffset,
	}
	if r.opts.Enrich != nil {
		r.opts.Enrich(e)
	}
	return e
}
