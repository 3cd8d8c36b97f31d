package filter

import (
	"strings"

	"github.com/zibo-chen/logline/internal/buffer"
)

// View is a read-only filtered projection of the window for the search and
// filter collaborators. It never mutates entries; it only maps filtered
// positions back to buffer-local indices. The index cache is rebuilt
// lazily after MarkDirty.
type View struct {
	window *buffer.Window

	levelFilter map[buffer.Level]bool
	textFilter  string

	indices []int // buffer-local indices passing the filter
	dirty   bool
}

// NewView creates a filtered view over a window
func NewView(window *buffer.Window) *View {
	return &View{
		window:      window,
		levelFilter: make(map[buffer.Level]bool),
		dirty:       true,
	}
}

// SetWindow repoints the view, e.g. after a reload
func (v *View) SetWindow(window *buffer.Window) {
	v.window = window
	v.dirty = true
}

// MarkDirty flags the index cache for rebuild; call after the window changes
func (v *View) MarkDirty() {
	v.dirty = true
}

// ToggleLevel toggles a level in the filter
func (v *View) ToggleLevel(level buffer.Level) {
	if v.levelFilter[level] {
		delete(v.levelFilter, level)
	} else {
		v.levelFilter[level] = true
	}
	v.dirty = true
}

// SetLevelAndAbove shows only the given severity and higher
func (v *View) SetLevelAndAbove(level buffer.Level) {
	v.levelFilter = make(map[buffer.Level]bool)
	for l := level; l <= buffer.LevelFatal; l++ {
		v.levelFilter[l] = true
	}
	v.dirty = true
}

// SetTextFilter sets the substring filter; empty clears it
func (v *View) SetTextFilter(text string) {
	v.textFilter = text
	v.dirty = true
}

// ClearFilters removes all filters
func (v *View) ClearFilters() {
	v.levelFilter = make(map[buffer.Level]bool)
	v.textFilter = ""
	v.dirty = true
}

// Active reports whether any filter is set
func (v *View) Active() bool {
	return len(v.levelFilter) > 0 || v.textFilter != ""
}

// Len returns the number of entries passing the filter
func (v *View) Len() int {
	if !v.Active() {
		return v.window.Len()
	}
	v.rebuild()
	return len(v.indices)
}

// At returns the i-th passing entry, nil if out of range
func (v *View) At(i int) *buffer.Entry {
	if !v.Active() {
		return v.window.At(i)
	}
	v.rebuild()
	if i < 0 || i >= len(v.indices) {
		return nil
	}
	return v.window.At(v.indices[i])
}

// BufferIndex maps a filtered position to its buffer-local index,
// -1 if out of range
func (v *View) BufferIndex(i int) int {
	if !v.Active() {
		if i < 0 || i >= v.window.Len() {
			return -1
		}
		return i
	}
	v.rebuild()
	if i < 0 || i >= len(v.indices) {
		return -1
	}
	return v.indices[i]
}

func (v *View) rebuild() {
	if !v.dirty {
		return
	}
	v.indices = v.indices[:0]

	idx := 0
	v.window.Each(func(e *buffer.Entry) bool {
		if v.passes(e) {
			v.indices = append(v.indices, idx)
		}
		idx++
		return true
	})
	v.dirty = false
}

func (v *View) passes(e *buffer.Entry) bool {
	if v.textFilter != "" && !strings.Contains(e.Content, v.textFilter) {
		return false
	}
	if len(v.levelFilter) > 0 && !v.levelFilter[e.Level] {
		return false
	}
	return true
}
