package tail

import (
	"bytes"

	"github.com/zibo-chen/logline/internal/mmapio"
)

// DefaultChunkSize is the backward-scan read granularity
const DefaultChunkSize = 1024 * 1024

// Line is a raw, undecoded line with the byte offset of its first byte
type Line struct {
	Content []byte
	Offset  int64
}

// Chunk is the result of a tail or history load: up to the requested number
// of raw lines, plus the byte offset where the loaded region begins.
// StartOffset == 0 means the region reaches the beginning of the file.
type Chunk struct {
	Lines       []Line
	StartOffset int64
}

// Scanner finds line boundaries by reading a mapped file backward in
// fixed-size chunks. Both the initial tail load and scroll-up history
// paging use it; they differ only in the anchor offset.
type Scanner struct {
	file      *mmapio.MappedFile
	chunkSize int
}

// NewScanner creates a scanner over an open mapped file
func NewScanner(file *mmapio.MappedFile, chunkSize int) *Scanner {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Scanner{file: file, chunkSize: chunkSize}
}

// Tail returns the last maxLines lines of the file along with the exact
// total line count. The backward scan alone cannot assign absolute line
// numbers, so a forward pass counts the newlines preceding the loaded
// region; callers derive the first global line number from the total.
// A trailing line without a newline counts as one line. An empty file
// yields a zero Chunk and zero total.
func (s *Scanner) Tail(maxLines int) (Chunk, int, error) {
	size := s.file.Size()
	if size == 0 || maxLines <= 0 {
		return Chunk{}, 0, nil
	}

	chunk, err := s.Previous(size, maxLines)
	if err != nil {
		return Chunk{}, 0, err
	}

	before, err := s.countNewlines(chunk.StartOffset)
	if err != nil {
		return Chunk{}, 0, err
	}
	return chunk, before + len(chunk.Lines), nil
}

// Previous returns up to maxLines lines whose content lies entirely before
// the anchor offset. An anchor at the beginning of the file returns an
// empty chunk, which is the terminal signal for history paging.
func (s *Scanner) Previous(before int64, maxLines int) (Chunk, error) {
	if before <= 0 || maxLines <= 0 {
		return Chunk{}, nil
	}
	if size := s.file.Size(); before > size {
		before = size
	}

	start, err := s.scanBack(before, maxLines)
	if err != nil {
		return Chunk{}, err
	}

	region, err := s.file.ReadRange(start, before)
	if err != nil {
		return Chunk{}, err
	}
	return Chunk{Lines: splitLines(region, start), StartOffset: start}, nil
}

// scanBack walks backward from the anchor until it has seen maxLines line
// starts, returning the offset of the earliest one. Offset 0 is always a
// line start.
func (s *Scanner) scanBack(before int64, maxLines int) (int64, error) {
	buf := make([]byte, s.chunkSize)
	need := maxLines
	pos := before

	// A newline at before-1 terminates the last wanted line; it does not
	// start a new one. Skip it so the scan counts line starts only.
	skipFirst := true

	for pos > 0 && need > 0 {
		readStart := pos - int64(s.chunkSize)
		if readStart < 0 {
			readStart = 0
		}
		n := int(pos - readStart)

		if _, err := s.file.ReadAt(buf[:n], readStart); err != nil {
			return 0, err
		}

		for i := n - 1; i >= 0; i-- {
			if buf[i] != '\n' {
				continue
			}
			if skipFirst && readStart+int64(i) == before-1 {
				skipFirst = false
				continue
			}
			need--
			if need == 0 {
				return readStart + int64(i) + 1, nil
			}
		}
		pos = readStart
	}
	return 0, nil
}

// countNewlines counts '\n' bytes in [0, end), one forward linear pass
func (s *Scanner) countNewlines(end int64) (int, error) {
	buf := make([]byte, s.chunkSize)
	count := 0
	var pos int64

	for pos < end {
		n := s.chunkSize
		if pos+int64(n) > end {
			n = int(end - pos)
		}
		if _, err := s.file.ReadAt(buf[:n], pos); err != nil {
			return 0, err
		}
		count += bytes.Count(buf[:n], []byte{'\n'})
		pos += int64(n)
	}
	return count, nil
}

// splitLines splits a loaded region into lines with absolute byte offsets.
// The region always starts at a line boundary; a final fragment without a
// newline is still one line.
func splitLines(region []byte, base int64) []Line {
	if len(region) == 0 {
		return nil
	}

	var lines []Line
	offset := 0
	for {
		idx := bytes.IndexByte(region[offset:], '\n')
		if idx == -1 {
			break
		}
		lines = append(lines, Line{
			Content: trimEOL(region[offset : offset+idx]),
			Offset:  base + int64(offset),
		})
		offset += idx + 1
	}
	if offset < len(region) {
		lines = append(lines, Line{
			Content: trimEOL(region[offset:]),
			Offset:  base + int64(offset),
		})
	}
	return lines
}

func trimEOL(b []byte) []byte {
	return bytes.TrimRight(b, "\r")
}
