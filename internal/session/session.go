package session

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zibo-chen/logline/internal/buffer"
	"github.com/zibo-chen/logline/internal/config"
	"github.com/zibo-chen/logline/internal/encoding"
	"github.com/zibo-chen/logline/internal/reader"
	"github.com/zibo-chen/logline/internal/worker"
	"github.com/zibo-chen/logline/pkg/logformat"
)

// Session is the consumer-side handle for one open log file. It owns the
// window and lazy-load state; the worker goroutine owns the reader cursor.
// The two sides share nothing and communicate only over the worker's
// command and event queues, so Session methods must all be called from the
// same goroutine (the UI loop).
type Session struct {
	path   string
	cfg    *config.Config
	codec  encoding.Codec
	window *buffer.Window
	lazy   *buffer.LazyLoadState
	worker *worker.Worker
	log    *logrus.Logger
	closed bool
}

// DrainResult summarizes what one drain pass applied to the window
type DrainResult struct {
	Appended    int
	Prepended   int
	Reset       bool
	HistoryDone bool // beginning of file reached during this pass
	Errors      []string
	Closed      bool // worker exited; no more events will arrive
}

// Changed reports whether the pass altered the window
func (r DrainResult) Changed() bool {
	return r.Appended > 0 || r.Prepended > 0 || r.Reset
}

// Open opens a log file: detects its encoding (codecName overrides
// detection when non-empty), loads the tail, and starts the ingestion
// worker. The returned session must be closed.
func Open(path string, cfg *config.Config, codecName string, log *logrus.Logger) (*Session, error) {
	codec, err := pickCodec(path, codecName)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	s := &Session{
		path:  path,
		cfg:   cfg,
		codec: codec,
		log:   log,
	}
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

// start performs the tail load and launches a fresh worker. Shared by Open
// and Reload.
func (s *Session) start() error {
	eng := s.cfg.Engine
	rd := reader.New(s.path, reader.Options{
		Codec:         s.codec,
		MaxLineLength: eng.MaxLineLength,
		ScanChunkSize: eng.ScanChunkKB * 1024,
		Enrich:        newEnricher(s.cfg),
	})

	entries, startOffset, total, err := rd.ReadTail(eng.TailLines)
	if err != nil {
		return err
	}

	s.window = buffer.NewWindow(eng.MaxLines, eng.AutoTrim, eng.MaxLines*eng.HistoryFactor)
	s.window.Append(entries)
	s.lazy = buffer.NewLazyLoadState(startOffset, total-len(entries)+1)

	s.worker = worker.New(rd, time.Duration(eng.PollIntervalMs)*time.Millisecond, s.log)
	go s.worker.Run()

	s.log.WithFields(logrus.Fields{
		"path":     s.path,
		"encoding": s.codec.Name(),
		"lines":    total,
		"loaded":   len(entries),
	}).Info("session opened")
	return nil
}

// Window returns the buffered window. The caller must stay on the session's
// goroutine; the window is not shared with the worker.
func (s *Session) Window() *buffer.Window {
	return s.window
}

// Lazy returns the history-loading state
func (s *Session) Lazy() *buffer.LazyLoadState {
	return s.lazy
}

// Path returns the open file's path
func (s *Session) Path() string {
	return s.path
}

// EncodingName returns the detected or selected encoding name
func (s *Session) EncodingName() string {
	return s.codec.Name()
}

// Drain applies every already-produced worker event to the window without
// blocking. Call once per UI refresh.
func (s *Session) Drain() DrainResult {
	var res DrainResult
	if s.worker == nil {
		res.Closed = true
		return res
	}

	for {
		select {
		case ev, ok := <-s.worker.Events():
			if !ok {
				res.Closed = true
				return res
			}
			s.apply(ev, &res)
		default:
			return res
		}
	}
}

func (s *Session) apply(ev worker.Event, res *DrainResult) {
	switch ev := ev.(type) {
	case worker.FileReset:
		// Rotation: numbering restarts at 1 and the new file begins at
		// offset 0, so there is no further history to page in
		s.window.Reset()
		s.lazy.Rebase(0, 1)
		res.Reset = true

	case worker.NewEntries:
		evicted := s.window.Append(ev.Entries)
		res.Appended += len(ev.Entries)
		if evicted > 0 && s.window.Len() > 0 && s.lazy.Phase() != buffer.PhaseLoading {
			// Head eviction moved the earliest buffered line forward; the
			// evicted range becomes pageable history again
			s.lazy.Rebase(s.window.At(0).ByteOffset, s.window.FirstLineNumber())
		}

	case worker.PreviousChunk:
		if s.lazy.Phase() != buffer.PhaseLoading || ev.Before != s.lazy.StartOffset() {
			return // response to a superseded request
		}
		if s.window.Len() > 0 && ev.Before != s.window.At(0).ByteOffset {
			// The window head moved while the request was in flight, so the
			// chunk no longer abuts it. Drop it and re-anchor.
			s.lazy.Rebase(s.window.At(0).ByteOffset, s.window.FirstLineNumber())
			return
		}
		if len(ev.Entries) == 0 {
			s.lazy.CompleteEmpty()
			res.HistoryDone = true
			return
		}
		kept := s.window.Prepend(ev.Entries)
		if kept == 0 {
			s.lazy.Abort()
			return
		}
		s.lazy.Complete(s.window.At(0).ByteOffset, kept)
		res.Prepended += kept
		if s.lazy.Phase() == buffer.PhaseFullyLoaded {
			res.HistoryDone = true
		}

	case worker.Failure:
		s.log.WithError(ev.Err).Warn("worker failure")
		// A failed history read produces no PreviousChunk; release the
		// in-flight guard so paging can be retried
		s.lazy.Abort()
		res.Errors = append(res.Errors, ev.Err.Error())
	}
}

// RequestHistory asks the worker for the chunk of lines preceding the
// loaded window. Returns false when a request is already in flight, the
// whole file is loaded, the window is at its history cap, or the command
// queue is momentarily full; callers simply try again on a later frame.
func (s *Session) RequestHistory() bool {
	if s.closed || s.lazy.Phase() != buffer.PhaseIdle {
		return false
	}
	if limit := s.window.HistoryLimit(); limit > 0 && s.window.Len() >= limit {
		return false
	}

	cmd := worker.LoadPreviousChunk{
		Before:   s.lazy.StartOffset(),
		MaxLines: s.cfg.Engine.HistoryChunkLines,
	}
	select {
	case s.worker.Commands() <- cmd:
		s.lazy.Begin()
		return true
	default:
		return false
	}
}

// Reload discards the window and re-opens the file from scratch
func (s *Session) Reload() error {
	s.stopWorker()
	s.closed = false
	return s.start()
}

// Close stops the worker and releases the session
func (s *Session) Close() error {
	s.stopWorker()
	return nil
}

// stopWorker shuts the worker down and drains its remaining events so the
// goroutine can exit promptly
func (s *Session) stopWorker() {
	if s.closed || s.worker == nil {
		s.closed = true
		return
	}
	s.closed = true
	s.worker.Stop()
	for range s.worker.Events() {
	}
}

// pickCodec samples the file head and detects the encoding, unless the
// user named one explicitly
func pickCodec(path string, codecName string) (encoding.Codec, error) {
	if codecName != "" {
		return encoding.ByName(codecName), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return encoding.UTF8(), fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sample := make([]byte, encoding.SampleSize)
	n, err := io.ReadFull(f, sample)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return encoding.UTF8(), fmt.Errorf("sample %s: %w", path, err)
	}
	return encoding.Detect(sample[:n]), nil
}

// newEnricher builds the decode-time hook that tags entries with a
// detected severity level and timestamp
func newEnricher(cfg *config.Config) func(*buffer.Entry) {
	levels := logformat.NewLevelDetector(&cfg.LogLevels)
	times := logformat.NewTimestampParser()
	return func(e *buffer.Entry) {
		e.Level = levels.Detect(e.Content)
		e.Timestamp = times.Parse(e.Content)
	}
}
