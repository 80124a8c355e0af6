package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RecorderInfo holds metadata about an active recording session.
type RecorderInfo struct {
	// Path is the transcript log file being written.
	Path string

	// StartedAt is when the session was started.
	StartedAt time.Time

	// Lines is the number of final transcripts recorded so far.
	Lines int
}

// Recorder captures final transcripts to a timestamped log file so a bad
// tracking session can be replayed offline. Only one recording can be
// active at a time. All exported methods are safe for concurrent use.
type Recorder struct {
	dir string

	mu     sync.Mutex
	active bool
	f      *os.File
	info   RecorderInfo
}

// NewRecorder creates a Recorder writing session logs under dir.
func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir}
}

// Start begins a new recording session. It returns an error if one is
// already active.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return fmt.Errorf("recorder: session already active (%s)", r.info.Path)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("recorder: create log dir: %w", err)
	}

	now := time.Now().UTC()
	path := filepath.Join(r.dir, "transcript-"+now.Format("20060102T150405Z")+".log")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("recorder: create log file: %w", err)
	}

	// Metadata lines are prefixed so replay loaders can skip them.
	fmt.Fprintf(f, "=== session started %s ===\n", now.Format(time.RFC3339))

	r.active = true
	r.f = f
	r.info = RecorderInfo{Path: path, StartedAt: now}

	slog.Info("transcript recording started", "path", path)
	return nil
}

// Record appends one final transcript line. Partials and empty texts are
// ignored, as are calls while no session is active.
func (r *Recorder) Record(text string, isFinal bool) {
	if !isFinal || text == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}

	if _, err := fmt.Fprintln(r.f, text); err != nil {
		slog.Warn("transcript write failed", "err", err)
		return
	}
	r.info.Lines++
}

// Stop closes the active recording session. It returns an error if none is
// active.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return fmt.Errorf("recorder: no active session to stop")
	}

	fmt.Fprintf(r.f, "=== session ended %s ===\n", time.Now().UTC().Format(time.RFC3339))
	err := r.f.Close()

	info := r.info
	r.active = false
	r.f = nil
	r.info = RecorderInfo{}

	slog.Info("transcript recording stopped", "path", info.Path, "lines", info.Lines)
	if err != nil {
		return fmt.Errorf("recorder: close log file: %w", err)
	}
	return nil
}

// IsActive reports whether a recording session is running.
func (r *Recorder) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Info returns metadata about the active session, or the zero value when
// none is active.
func (r *Recorder) Info() RecorderInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info
}
