package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zibo-chen/logline/internal/buffer"
	"github.com/zibo-chen/logline/internal/encoding"
)

func newTestReader(t *testing.T, content string, opts Options) (*Reader, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if opts.Codec.Name() == "" {
		opts.Codec = encoding.UTF8()
	}
	return New(path, opts), path
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

func TestReadTailSetsCursor(t *testing.T) {
	content := "one\ntwo\nthree\n"
	r, _ := newTestReader(t, content, Options{})

	entries, start, total, err := r.ReadTail(2)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(entries) != 2 {
		t.Fatalf("total=%d entries=%d, want 3, 2", total, len(entries))
	}
	if entries[0].LineNumber != 2 || entries[0].Content != "two" {
		t.Errorf("first = %d/%q, want 2/two", entries[0].LineNumber, entries[0].Content)
	}
	if want := int64(strings.Index(content, "two")); start != want {
		t.Errorf("start = %d, want %d", start, want)
	}

	c := r.Cursor()
	if c.Offset != int64(len(content)) || c.Lines != 3 {
		t.Errorf("cursor = %+v, want offset %d lines 3", c, len(content))
	}
}

func TestReadTailEmptyFile(t *testing.T) {
	r, _ := newTestReader(t, "", Options{})

	entries, start, total, err := r.ReadTail(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 || start != 0 || total != 0 {
		t.Errorf("got %d entries, start %d, total %d; want all zero", len(entries), start, total)
	}
}

func TestAppendAfterOpen(t *testing.T) {
	r, path := newTestReader(t, "", Options{})
	if _, _, _, err := r.ReadTail(10); err != nil {
		t.Fatal(err)
	}

	fresh, err := r.HasNewContent()
	if err != nil {
		t.Fatal(err)
	}
	if fresh {
		t.Error("HasNewContent = true on unchanged file")
	}

	appendFile(t, path, "hello\n")

	fresh, err = r.HasNewContent()
	if err != nil {
		t.Fatal(err)
	}
	if !fresh {
		t.Fatal("HasNewContent = false after append")
	}

	entries, rotated, err := r.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if rotated {
		t.Error("unexpected rotation")
	}
	if len(entries) != 1 || entries[0].LineNumber != 1 || entries[0].Content != "hello" {
		t.Fatalf("entries = %+v, want one entry line 1 %q", entries, "hello")
	}
}

func TestReadNewLinesIdempotent(t *testing.T) {
	r, path := newTestReader(t, "a\nb\n", Options{})
	if _, _, _, err := r.ReadTail(10); err != nil {
		t.Fatal(err)
	}
	appendFile(t, path, "c\n")

	entries, _, err := r.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("first read got %d entries, want 1", len(entries))
	}

	for i := 0; i < 3; i++ {
		entries, _, err := r.ReadNewLines()
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Fatalf("repeat read %d got %d entries, want 0", i, len(entries))
		}
	}
}

func TestReadNewLinesNumbering(t *testing.T) {
	r, path := newTestReader(t, "a\nb\nc\n", Options{})
	if _, _, _, err := r.ReadTail(2); err != nil {
		t.Fatal(err)
	}
	appendFile(t, path, "d\ne\n")

	entries, _, err := r.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].LineNumber != 4 || entries[1].LineNumber != 5 {
		t.Errorf("line numbers = %d, %d; want 4, 5", entries[0].LineNumber, entries[1].LineNumber)
	}
}

func TestRotationResetsCursor(t *testing.T) {
	r, path := newTestReader(t, "old1\nold2\nold3\n", Options{})
	if _, _, _, err := r.ReadTail(10); err != nil {
		t.Fatal(err)
	}

	// Rotate: replace with a shorter file
	if err := os.WriteFile(path, []byte("new1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fresh, err := r.HasNewContent()
	if err != nil {
		t.Fatal(err)
	}
	if !fresh {
		t.Fatal("HasNewContent should report a shrunken file")
	}

	entries, rotated, err := r.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if !rotated {
		t.Fatal("rotated = false, want true")
	}
	if len(entries) != 1 || entries[0].LineNumber != 1 || entries[0].Content != "new1" {
		t.Fatalf("entries = %+v, want one entry restarting at line 1", entries)
	}
	if c := r.Cursor(); c.Offset != 5 || c.Lines != 1 {
		t.Errorf("cursor = %+v, want offset 5 lines 1", c)
	}
}

func TestRotationSurvivesFailedRead(t *testing.T) {
	// Enough old content that an empty directory's stat size reads as a
	// shrink on every filesystem
	old := strings.Repeat("0123456789abcde\n", 512)
	r, path := newTestReader(t, old, Options{})
	if _, _, _, err := r.ReadTail(10); err != nil {
		t.Fatal(err)
	}

	// Mid-rotation the path briefly points at something unreadable: the
	// shrink is observed but the read itself fails
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatal(err)
	}

	entries, rotated, err := r.ReadNewLines()
	if err == nil {
		t.Fatal("expected a read error while the path is a directory")
	}
	if rotated || len(entries) != 0 {
		t.Fatalf("failed read returned rotated=%v entries=%d, want false, 0", rotated, len(entries))
	}

	// The new file lands: the reset seen during the failed poll must still
	// be reported together with the restarted entries
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("new1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fresh, err := r.HasNewContent()
	if err != nil {
		t.Fatal(err)
	}
	if !fresh {
		t.Fatal("HasNewContent = false with a reset pending")
	}

	entries, rotated, err = r.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if !rotated {
		t.Fatal("rotated = false, want true (reset latched across the failed read)")
	}
	if len(entries) != 1 || entries[0].LineNumber != 1 || entries[0].Content != "new1" {
		t.Fatalf("entries = %+v, want one entry restarting at line 1", entries)
	}
}

func TestByteOffsets(t *testing.T) {
	r, path := newTestReader(t, "", Options{})
	if _, _, _, err := r.ReadTail(10); err != nil {
		t.Fatal(err)
	}
	appendFile(t, path, "aa\nbbb\n")

	entries, _, err := r.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ByteOffset != 0 || entries[1].ByteOffset != 3 {
		t.Errorf("offsets = %d, %d; want 0, 3", entries[0].ByteOffset, entries[1].ByteOffset)
	}
}

func TestLongLineTruncated(t *testing.T) {
	long := strings.Repeat("x", 50)
	r, path := newTestReader(t, "", Options{MaxLineLength: 10})
	if _, _, _, err := r.ReadTail(10); err != nil {
		t.Fatal(err)
	}
	appendFile(t, path, long+"\n")

	entries, _, err := r.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Repeat("x", 10) + truncationMark
	if entries[0].Content != want {
		t.Errorf("content = %q, want %q", entries[0].Content, want)
	}
}

func TestEnrichHook(t *testing.T) {
	r, path := newTestReader(t, "", Options{
		Enrich: func(e *buffer.Entry) {
			if strings.Contains(e.Content, "ERROR") {
				e.Level = buffer.LevelError
			}
		},
	})
	if _, _, _, err := r.ReadTail(10); err != nil {
		t.Fatal(err)
	}
	appendFile(t, path, "ERROR boom\nall fine\n")

	entries, _, err := r.ReadNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Level != buffer.LevelError || entries[1].Level != buffer.LevelUnknown {
		t.Errorf("levels = %v, %v; want error, unknown", entries[0].Level, entries[1].Level)
	}
}

func TestReadPreviousChunkTermination(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 9; i++ {
		fmt.Fprintf(&b, "line%d\n", i)
	}
	r, _ := newTestReader(t, b.String(), Options{})

	_, start, _, err := r.ReadTail(3)
	if err != nil {
		t.Fatal(err)
	}

	before := start
	loads := 0
	for {
		entries, newStart, err := r.ReadPreviousChunk(before, 3)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) == 0 {
			break
		}
		loads++
		before = newStart
		if loads > 10 {
			t.Fatal("history loading never terminated")
		}
	}
	if before != 0 {
		t.Errorf("final start = %d, want 0", before)
	}
	if loads != 2 {
		t.Errorf("loads = %d, want 2", loads)
	}
}
