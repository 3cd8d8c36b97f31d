package worker

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/zibo-chen/logline/internal/buffer"
	"github.com/zibo-chen/logline/internal/reader"
)

// Command is a request from the consumer to the worker
type Command interface{ isCommand() }

// Stop asks the worker to exit. Closing the command channel is equivalent.
type Stop struct{}

// LoadPreviousChunk asks for up to MaxLines lines preceding Before
type LoadPreviousChunk struct {
	Before   int64
	MaxLines int
}

func (Stop) isCommand()              {}
func (LoadPreviousChunk) isCommand() {}

// Event is a message from the worker to the consumer
type Event interface{ isEvent() }

// NewEntries carries freshly read lines from the tail of the file
type NewEntries struct {
	Entries []*buffer.Entry
}

// PreviousChunk answers a LoadPreviousChunk command. Before echoes the
// request so the consumer can discard responses to superseded requests.
// Empty entries mean the beginning of the file had already been loaded.
type PreviousChunk struct {
	Entries     []*buffer.Entry
	StartOffset int64
	Before      int64
}

// FileReset signals that the file shrank below the read cursor (rotation).
// It is always delivered before any NewEntries read after the reset, so the
// consumer can clear its window without racing stale appends.
type FileReset struct{}

// Failure reports a non-fatal I/O problem; the worker keeps polling
type Failure struct {
	Err error
}

func (NewEntries) isEvent()    {}
func (PreviousChunk) isEvent() {}
func (FileReset) isEvent()     {}
func (Failure) isEvent()       {}

const (
	commandQueueDepth   = 10
	eventQueueDepth     = 1000
	defaultPollInterval = 50 * time.Millisecond
	errorBackoff        = time.Second
)

// Worker runs all file I/O for one open file on a dedicated goroutine.
// The consumer talks to it only through the two bounded FIFO channels:
// commands in, events out. The worker is the sole owner of the reader and
// its cursor; nothing else touches them once Run starts.
type Worker struct {
	reader *reader.Reader
	poll   time.Duration
	cmds   chan Command
	events chan Event
	log    *logrus.Logger
}

// New creates a worker around a reader. A nil logger discards diagnostics.
func New(r *reader.Reader, poll time.Duration, log *logrus.Logger) *Worker {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Worker{
		reader: r,
		poll:   poll,
		cmds:   make(chan Command, commandQueueDepth),
		events: make(chan Event, eventQueueDepth),
		log:    log,
	}
}

// Commands returns the send side of the command queue. Senders must not
// block: a full queue means try again next frame.
func (w *Worker) Commands() chan<- Command {
	return w.cmds
}

// Events returns the receive side of the event queue
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Stop closes the command channel, which the run loop treats as a Stop
// command. Call at most once; the owning session serializes this.
func (w *Worker) Stop() {
	close(w.cmds)
}

// Run executes the ingestion loop until a Stop command arrives or the
// command channel is closed. Call it on its own goroutine. The event
// channel is closed on exit.
func (w *Worker) Run() {
	defer close(w.events)

	if _, err := os.Stat(w.reader.Path()); err != nil {
		// Unreadable at start-up is the one fatal case
		w.events <- Failure{Err: fmt.Errorf("open %s: %w", w.reader.Path(), err)}
		return
	}

	// fsnotify wakes the loop early on writes; the timer below remains the
	// source of truth so behavior does not depend on inotify availability.
	// The parent directory is watched so rename-style rotation is seen too.
	var fsEvents chan fsnotify.Event
	var fsErrors chan error
	if watcher, err := fsnotify.NewWatcher(); err == nil {
		if err := watcher.Add(filepath.Dir(w.reader.Path())); err == nil {
			fsEvents = watcher.Events
			fsErrors = watcher.Errors
		}
		defer watcher.Close()
	}

	for {
		if !w.drainCommands() {
			return
		}

		wait := w.poll
		if err := w.pollOnce(); err != nil {
			w.log.WithError(err).Warn("poll failed")
			w.events <- Failure{Err: err}
			wait = errorBackoff
		}

		if !w.wait(wait, fsEvents, fsErrors) {
			return
		}
	}
}

// drainCommands services every pending command without blocking.
// Returns false when the worker should exit.
func (w *Worker) drainCommands() bool {
	for {
		select {
		case cmd, ok := <-w.cmds:
			if !ok {
				return false
			}
			if !w.handle(cmd) {
				return false
			}
		default:
			return true
		}
	}
}

func (w *Worker) handle(cmd Command) bool {
	switch cmd := cmd.(type) {
	case Stop:
		return false
	case LoadPreviousChunk:
		entries, start, err := w.reader.ReadPreviousChunk(cmd.Before, cmd.MaxLines)
		if err != nil {
			w.events <- Failure{Err: err}
			return true
		}
		w.events <- PreviousChunk{Entries: entries, StartOffset: start, Before: cmd.Before}
	}
	return true
}

// pollOnce checks for growth and emits events for whatever it finds.
// Rotation produces FileReset strictly before the restarted entries.
func (w *Worker) pollOnce() error {
	fresh, err := w.reader.HasNewContent()
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	entries, rotated, err := w.reader.ReadNewLines()
	if err != nil {
		return err
	}
	if rotated {
		w.log.Info("file rotation detected")
		w.events <- FileReset{}
	}
	if len(entries) > 0 {
		w.events <- NewEntries{Entries: entries}
	}
	return nil
}

// wait sleeps between iterations but wakes early for commands or file
// writes. Returns false when the worker should exit.
func (w *Worker) wait(d time.Duration, fsEvents chan fsnotify.Event, fsErrors chan error) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case cmd, ok := <-w.cmds:
			if !ok {
				return false
			}
			return w.handle(cmd)
		case ev := <-fsEvents:
			if ev.Name == w.reader.Path() && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				return true
			}
		case err := <-fsErrors:
			w.log.WithError(err).Debug("watcher error")
		case <-timer.C:
			return true
		}
	}
}
