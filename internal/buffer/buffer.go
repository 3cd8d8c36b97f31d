package buffer

import "time"

// Level represents a log severity level
type Level int

const (
	LevelUnknown Level = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// Entry is a single decoded log line. Entries are owned by the Window once
// appended; only the Bookmarked flag mutates afterwards.
type Entry struct {
	LineNumber int    // global 1-indexed position in the file
	Content    string // decoded line content, newline stripped
	Level      Level
	Timestamp  *time.Time
	Bookmarked bool
	ByteOffset int64 // offset of the line's first byte in the file
}

// entryOverhead approximates the fixed per-entry cost for memory accounting
const entryOverhead = 64

// Window is the bounded in-memory view over a contiguous run of the file's
// lines. Appends land at the tail and may evict from the head when auto-trim
// is on; history loads prepend at the head. Consecutive entries always have
// adjacent line numbers.
type Window struct {
	entries      []*Entry
	maxLines     int
	autoTrim     bool
	historyLimit int // window cap while paging history; 0 means uncapped

	// Numbering baseline used when the window is empty: the line number the
	// next appended entry is expected to carry. Clear keeps the global
	// numbering running; Reset restarts it after a file rotation.
	baseline   int
	totalAdded int
}

// NewWindow creates a window holding at most maxLines entries when autoTrim
// is enabled. historyLimit caps growth during backward history loading; pass
// 0 to leave history loading uncapped.
func NewWindow(maxLines int, autoTrim bool, historyLimit int) *Window {
	return &Window{
		maxLines:     maxLines,
		autoTrim:     autoTrim,
		historyLimit: historyLimit,
		baseline:     1,
	}
}

// Len returns the number of buffered entries
func (w *Window) Len() int {
	return len(w.entries)
}

// FirstLineNumber returns the global line number of the first buffered
// entry, or the numbering baseline when the window is empty
func (w *Window) FirstLineNumber() int {
	if len(w.entries) == 0 {
		return w.baseline
	}
	return w.entries[0].LineNumber
}

// LastLineNumber returns the global line number of the last buffered entry,
// or zero when the window is empty
func (w *Window) LastLineNumber() int {
	if len(w.entries) == 0 {
		return 0
	}
	return w.entries[len(w.entries)-1].LineNumber
}

// At returns the entry at a buffer-local index, nil if out of range
func (w *Window) At(i int) *Entry {
	if i < 0 || i >= len(w.entries) {
		return nil
	}
	return w.entries[i]
}

// ByLineNumber returns the entry with the given global line number,
// nil if it is outside the window
func (w *Window) ByLineNumber(n int) *Entry {
	return w.At(n - w.FirstLineNumber())
}

// Each calls fn for every buffered entry in order until fn returns false.
// Read-only iteration for rendering and filtering.
func (w *Window) Each(fn func(*Entry) bool) {
	for _, e := range w.entries {
		if !fn(e) {
			return
		}
	}
}

// Append adds entries at the tail. When auto-trim is enabled and the window
// exceeds maxLines, the oldest entries are evicted from the head; the
// returned count is the number evicted.
func (w *Window) Append(entries []*Entry) int {
	if len(entries) == 0 {
		return 0
	}

	w.entries = append(w.entries, entries...)
	w.totalAdded += len(entries)

	if !w.autoTrim || len(w.entries) <= w.maxLines {
		return 0
	}

	evict := len(w.entries) - w.maxLines
	w.evictHead(evict)
	return evict
}

// Prepend adds older entries at the head during history loading, assigning
// their line numbers backward from the current first line. When a history
// limit is set, incoming entries that would grow the window past it are
// dropped from their older end, so the buffered run stays contiguous up to
// the live tail. Returns the number of entries kept.
func (w *Window) Prepend(entries []*Entry) int {
	if len(entries) == 0 {
		return 0
	}

	if w.historyLimit > 0 {
		room := w.historyLimit - len(w.entries)
		if room <= 0 {
			return 0
		}
		if len(entries) > room {
			entries = entries[len(entries)-room:]
		}
	}

	first := w.FirstLineNumber() - len(entries)
	for i, e := range entries {
		e.LineNumber = first + i
	}

	w.entries = append(entries[:len(entries):len(entries)], w.entries...)
	return len(entries)
}

// HistoryLimit returns the window cap applied while paging history,
// 0 when uncapped
func (w *Window) HistoryLimit() int {
	return w.historyLimit
}

// Clear empties the window while keeping the global numbering running:
// subsequent appends continue from the total number of lines ever added
func (w *Window) Clear() {
	w.entries = nil
	w.baseline = w.totalAdded + 1
}

// Reset empties the window and restarts numbering at line 1. Used when
// the underlying file has been rotated.
func (w *Window) Reset() {
	w.entries = nil
	w.baseline = 1
	w.totalAdded = 0
}

// ToggleBookmarks flips the bookmark flag on the entries at the given
// buffer-local indices. If any targeted entry is unbookmarked, all targets
// become bookmarked; otherwise all are unbookmarked. Returns the number of
// entries affected.
func (w *Window) ToggleBookmarks(indices []int) int {
	anyOff := false
	for _, i := range indices {
		if e := w.At(i); e != nil && !e.Bookmarked {
			anyOff = true
			break
		}
	}

	affected := 0
	for _, i := range indices {
		if e := w.At(i); e != nil {
			e.Bookmarked = anyOff
			affected++
		}
	}
	return affected
}

// BookmarkedLines returns the global line numbers of bookmarked entries
func (w *Window) BookmarkedLines() []int {
	var lines []int
	for _, e := range w.entries {
		if e.Bookmarked {
			lines = append(lines, e.LineNumber)
		}
	}
	return lines
}

// MemoryUsage estimates the window's memory footprint in bytes, for
// diagnostics display only
func (w *Window) MemoryUsage() int64 {
	var total int64
	for _, e := range w.entries {
		total += entryOverhead + int64(len(e.Content))
	}
	return total
}

func (w *Window) evictHead(n int) {
	// Copy down rather than reslicing so evicted entries are released
	remaining := len(w.entries) - n
	copy(w.entries, w.entries[n:])
	for i := remaining; i < len(w.entries); i++ {
		w.entries[i] = nil
	}
	w.entries = w.entries[:remaining]
}
