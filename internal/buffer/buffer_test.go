package buffer

import (
	"fmt"
	"testing"
)

func makeEntries(first, count int) []*Entry {
	entries := make([]*Entry, count)
	for i := 0; i < count; i++ {
		entries[i] = &Entry{
			LineNumber: first + i,
			Content:    fmt.Sprintf("line%d", first+i),
		}
	}
	return entries
}

func checkAdjacent(t *testing.T, w *Window) {
	t.Helper()
	for i := 1; i < w.Len(); i++ {
		prev, cur := w.At(i-1), w.At(i)
		if cur.LineNumber != prev.LineNumber+1 {
			t.Fatalf("entries %d/%d have line numbers %d/%d, want adjacent",
				i-1, i, prev.LineNumber, cur.LineNumber)
		}
	}
}

func TestAppendAutoTrim(t *testing.T) {
	w := NewWindow(5, true, 0)

	if evicted := w.Append(makeEntries(1, 3)); evicted != 0 {
		t.Errorf("evicted = %d, want 0", evicted)
	}
	if evicted := w.Append(makeEntries(4, 4)); evicted != 2 {
		t.Errorf("evicted = %d, want 2", evicted)
	}

	if w.Len() != 5 {
		t.Errorf("Len = %d, want 5", w.Len())
	}
	if w.FirstLineNumber() != 3 {
		t.Errorf("FirstLineNumber = %d, want 3 (advanced by evicted count)", w.FirstLineNumber())
	}
	if w.LastLineNumber() != 7 {
		t.Errorf("LastLineNumber = %d, want 7", w.LastLineNumber())
	}
	checkAdjacent(t, w)
}

func TestAppendNoTrim(t *testing.T) {
	w := NewWindow(5, false, 0)

	if evicted := w.Append(makeEntries(1, 10)); evicted != 0 {
		t.Errorf("evicted = %d, want 0 with auto-trim off", evicted)
	}
	if w.Len() != 10 {
		t.Errorf("Len = %d, want 10", w.Len())
	}
}

func TestPrependAssignsNumbers(t *testing.T) {
	w := NewWindow(100, true, 0)
	w.Append(makeEntries(11, 5)) // lines 11-15

	older := []*Entry{
		{Content: "older1"},
		{Content: "older2"},
		{Content: "older3"},
	}
	w.Prepend(older)

	if w.FirstLineNumber() != 8 {
		t.Errorf("FirstLineNumber = %d, want 8", w.FirstLineNumber())
	}
	if got := w.At(0).Content; got != "older1" {
		t.Errorf("At(0).Content = %q, want older1", got)
	}
	checkAdjacent(t, w)
}

func TestPrependHistoryLimit(t *testing.T) {
	w := NewWindow(5, true, 8)
	w.Append(makeEntries(101, 5))

	kept := w.Prepend(makeEntries(0, 6)) // numbers reassigned anyway
	if kept != 3 {
		t.Errorf("kept = %d, want 3 (older entries clipped at history limit)", kept)
	}
	if w.Len() != 8 {
		t.Errorf("Len = %d, want 8", w.Len())
	}
	if w.FirstLineNumber() != 98 || w.LastLineNumber() != 105 {
		t.Errorf("window = [%d,%d], want [98,105]", w.FirstLineNumber(), w.LastLineNumber())
	}
	checkAdjacent(t, w)
}

func TestPrependRefusedAtHistoryLimit(t *testing.T) {
	w := NewWindow(5, true, 5)
	w.Append(makeEntries(11, 5))

	if kept := w.Prepend(makeEntries(0, 3)); kept != 0 {
		t.Errorf("kept = %d, want 0 (window already at history limit)", kept)
	}
	if w.Len() != 5 || w.FirstLineNumber() != 11 {
		t.Errorf("window = len %d first %d, want 5, 11", w.Len(), w.FirstLineNumber())
	}
}

func TestAppendAfterCappedPrepend(t *testing.T) {
	w := NewWindow(5, true, 8)
	w.Append(makeEntries(101, 5))
	w.Prepend(makeEntries(0, 6))

	// The live tail survives the history cap, so the next append abuts the
	// window and addressing by line number stays exact
	w.Append(makeEntries(106, 1))
	checkAdjacent(t, w)
	if e := w.ByLineNumber(106); e == nil || e.Content != "line106" {
		t.Errorf("ByLineNumber(106) = %v, want line106", e)
	}
	if e := w.ByLineNumber(103); e == nil || e.Content != "line103" {
		t.Errorf("ByLineNumber(103) = %v, want line103", e)
	}
}

func TestClearKeepsNumbering(t *testing.T) {
	w := NewWindow(100, true, 0)
	w.Append(makeEntries(1, 5))

	w.Clear()
	if w.Len() != 0 {
		t.Fatalf("Len = %d after Clear, want 0", w.Len())
	}
	if w.FirstLineNumber() != 6 {
		t.Errorf("baseline = %d after Clear, want 6", w.FirstLineNumber())
	}

	// Appends continue the global numbering
	w.Append(makeEntries(6, 2))
	if w.FirstLineNumber() != 6 || w.LastLineNumber() != 7 {
		t.Errorf("window = [%d,%d], want [6,7]", w.FirstLineNumber(), w.LastLineNumber())
	}
}

func TestResetRestartsNumbering(t *testing.T) {
	w := NewWindow(100, true, 0)
	w.Append(makeEntries(1, 5))

	w.Reset()
	if w.FirstLineNumber() != 1 {
		t.Errorf("baseline = %d after Reset, want 1", w.FirstLineNumber())
	}
}

func TestByLineNumber(t *testing.T) {
	w := NewWindow(100, true, 0)
	w.Append(makeEntries(51, 10))

	if e := w.ByLineNumber(55); e == nil || e.Content != "line55" {
		t.Errorf("ByLineNumber(55) = %v, want line55", e)
	}
	if e := w.ByLineNumber(50); e != nil {
		t.Errorf("ByLineNumber(50) = %v, want nil (outside window)", e)
	}
	if e := w.ByLineNumber(61); e != nil {
		t.Errorf("ByLineNumber(61) = %v, want nil (outside window)", e)
	}
}

func TestToggleBookmarks(t *testing.T) {
	w := NewWindow(100, true, 0)
	w.Append(makeEntries(1, 6))
	w.At(5).Bookmarked = true // line 6 pre-bookmarked

	// One target off, one on: bookmark both
	if n := w.ToggleBookmarks([]int{2, 5}); n != 2 {
		t.Errorf("affected = %d, want 2", n)
	}
	if !w.At(2).Bookmarked || !w.At(5).Bookmarked {
		t.Error("both targets should be bookmarked")
	}

	// All targets on: unbookmark both
	if n := w.ToggleBookmarks([]int{2, 5}); n != 2 {
		t.Errorf("affected = %d, want 2", n)
	}
	if w.At(2).Bookmarked || w.At(5).Bookmarked {
		t.Error("both targets should be unbookmarked")
	}
}

func TestToggleBookmarksIgnoresOutOfRange(t *testing.T) {
	w := NewWindow(100, true, 0)
	w.Append(makeEntries(1, 3))

	if n := w.ToggleBookmarks([]int{1, 99}); n != 1 {
		t.Errorf("affected = %d, want 1", n)
	}
}

func TestMemoryUsage(t *testing.T) {
	w := NewWindow(100, true, 0)
	if w.MemoryUsage() != 0 {
		t.Errorf("empty window usage = %d, want 0", w.MemoryUsage())
	}

	w.Append([]*Entry{{LineNumber: 1, Content: "hello"}})
	if got := w.MemoryUsage(); got != entryOverhead+5 {
		t.Errorf("usage = %d, want %d", got, entryOverhead+5)
	}
}

func TestLazyLoadTransitions(t *testing.T) {
	s := NewLazyLoadState(100, 11)
	if s.Phase() != PhaseIdle {
		t.Fatalf("phase = %v, want idle", s.Phase())
	}

	if !s.Begin() {
		t.Fatal("Begin should succeed from idle")
	}
	if s.Begin() {
		t.Fatal("Begin should fail while loading")
	}

	s.Complete(40, 5)
	if s.Phase() != PhaseIdle || s.StartOffset() != 40 || s.FirstLine() != 6 {
		t.Errorf("after Complete: phase=%v start=%d first=%d, want idle/40/6",
			s.Phase(), s.StartOffset(), s.FirstLine())
	}

	s.Begin()
	s.CompleteEmpty()
	if s.Phase() != PhaseFullyLoaded || s.StartOffset() != 0 {
		t.Errorf("after CompleteEmpty: phase=%v start=%d, want fully loaded/0", s.Phase(), s.StartOffset())
	}
	if s.Begin() {
		t.Error("Begin should fail once fully loaded")
	}
}

func TestLazyLoadAbort(t *testing.T) {
	s := NewLazyLoadState(100, 11)
	s.Begin()

	s.Abort()
	if s.Phase() != PhaseIdle {
		t.Fatalf("phase = %v, want idle after abort", s.Phase())
	}
	if s.StartOffset() != 100 || s.FirstLine() != 11 {
		t.Errorf("state = start %d first %d, want unchanged 100, 11", s.StartOffset(), s.FirstLine())
	}
	if !s.Begin() {
		t.Error("Begin should succeed again after abort")
	}

	done := NewLazyLoadState(0, 1)
	done.Abort()
	if done.Phase() != PhaseFullyLoaded {
		t.Errorf("phase = %v, abort should not leave the terminal phase", done.Phase())
	}
}

func TestLazyLoadCompleteReachingStart(t *testing.T) {
	s := NewLazyLoadState(30, 4)
	s.Begin()
	s.Complete(0, 3)
	if s.Phase() != PhaseFullyLoaded {
		t.Errorf("phase = %v, want fully loaded when start offset reaches 0", s.Phase())
	}
}

func TestLazyLoadSeededAtStart(t *testing.T) {
	s := NewLazyLoadState(0, 1)
	if s.Phase() != PhaseFullyLoaded {
		t.Errorf("phase = %v, want fully loaded when tail reaches file start", s.Phase())
	}
}
