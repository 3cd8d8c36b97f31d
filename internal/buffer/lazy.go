package buffer

// LoadPhase is the history-loading state of a window
type LoadPhase int

const (
	// PhaseIdle means more history may exist and no request is in flight
	PhaseIdle LoadPhase = iota
	// PhaseLoading means a backward-load request is outstanding
	PhaseLoading
	// PhaseFullyLoaded means the beginning of the file has been reached;
	// no further history requests are issued
	PhaseFullyLoaded
)

// LazyLoadState tracks how far back history has been paged in and guards
// against duplicate in-flight backward-load requests. The consumer side
// owns it; transitions are driven by issuing requests and by the worker's
// history responses.
type LazyLoadState struct {
	startOffset int64 // byte offset of the earliest loaded line
	firstLine   int   // global line number of the earliest loaded line
	phase       LoadPhase
}

// NewLazyLoadState seeds the state from the initial tail load
func NewLazyLoadState(startOffset int64, firstLine int) *LazyLoadState {
	s := &LazyLoadState{startOffset: startOffset, firstLine: firstLine}
	if startOffset == 0 {
		s.phase = PhaseFullyLoaded
	}
	return s
}

// Phase returns the current loading phase
func (s *LazyLoadState) Phase() LoadPhase {
	return s.phase
}

// StartOffset returns the byte offset of the earliest loaded line
func (s *LazyLoadState) StartOffset() int64 {
	return s.startOffset
}

// FirstLine returns the global line number of the earliest loaded line
func (s *LazyLoadState) FirstLine() int {
	return s.firstLine
}

// Begin marks a request as in flight. It returns false, and issues no
// transition, unless the state is idle.
func (s *LazyLoadState) Begin() bool {
	if s.phase != PhaseIdle {
		return false
	}
	s.phase = PhaseLoading
	return true
}

// Complete records a nonempty history response and returns to idle
func (s *LazyLoadState) Complete(newStartOffset int64, prepended int) {
	s.startOffset = newStartOffset
	s.firstLine -= prepended
	if newStartOffset == 0 {
		s.phase = PhaseFullyLoaded
		return
	}
	s.phase = PhaseIdle
}

// Abort returns an in-flight request to idle after a failed or discarded
// history response, so a later request can be issued. No-op in the other
// phases.
func (s *LazyLoadState) Abort() {
	if s.phase == PhaseLoading {
		s.phase = PhaseIdle
	}
}

// CompleteEmpty records an empty history response: the beginning of the
// file was already loaded. Terminal.
func (s *LazyLoadState) CompleteEmpty() {
	s.startOffset = 0
	s.phase = PhaseFullyLoaded
}

// Rebase reseeds the state after a reload or rotation reset
func (s *LazyLoadState) Rebase(startOffset int64, firstLine int) {
	s.startOffset = startOffset
	s.firstLine = firstLine
	if startOffset == 0 {
		s.phase = PhaseFullyLoaded
	} else {
		s.phase = PhaseIdle
	}
}
