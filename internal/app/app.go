// Package app wires all autocue subsystems into a running application.
//
// The App struct owns the full lifecycle: New connects the tracking worker
// and web server, Run starts the ASR session and pumps transcripts until
// the context is cancelled, and Shutdown tears everything down in order.
//
// For testing, inject an [asr.Provider] mock via WithProvider and skip the
// network listener by driving the server handler directly.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/EdNutting/autocue/internal/config"
	"github.com/EdNutting/autocue/internal/resilience"
	"github.com/EdNutting/autocue/internal/server"
	"github.com/EdNutting/autocue/internal/track"
	"github.com/EdNutting/autocue/internal/track/threaded"
	"github.com/EdNutting/autocue/pkg/provider/asr"
	"github.com/EdNutting/autocue/pkg/types"
)

// App owns all subsystem lifetimes and orchestrates the transcript pipeline
// from the ASR provider through the tracking worker to connected displays.
type App struct {
	provider   asr.Provider
	configPath string
	logLevel   *slog.LevelVar
	recorder   *Recorder

	mu         sync.RWMutex
	cfg        *config.Config
	scriptText string
	tracker    *threaded.Tracker

	srv     *server.Server
	watcher *config.Watcher

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithProvider sets the ASR provider feeding the tracker. Without one the
// app runs display-only: positions move only via UI jumps.
func WithProvider(p asr.Provider) Option {
	return func(a *App) { a.provider = p }
}

// WithScript sets the initial script text.
func WithScript(text string) Option {
	return func(a *App) { a.scriptText = text }
}

// WithConfigPath enables config persistence and hot reload for the given
// file.
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithLogLevelVar lets config reloads adjust the process log level.
func WithLogLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = v }
}

// WithTranscriptDir records final transcripts under dir for offline replay.
func WithTranscriptDir(dir string) Option {
	return func(a *App) { a.recorder = NewRecorder(dir) }
}

// New creates an App by wiring the tracking worker and web server together.
// The ASR session is not started until Run.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	tracker, err := a.buildTracker(a.scriptText)
	if err != nil {
		return nil, fmt.Errorf("app: start tracking worker: %w", err)
	}
	a.tracker = tracker

	srvOpts := []server.Option{
		server.WithScriptHandler(a.SetScript),
	}
	if cfg.Server.TLS != nil {
		srvOpts = append(srvOpts, server.WithTLS(cfg.Server.TLS))
	}
	if a.configPath != "" {
		srvOpts = append(srvOpts, server.WithConfigPath(a.configPath))
	}
	a.srv = server.New(cfg.Server.ListenAddr, a, cfg.Display, srvOpts...)

	if a.scriptText != "" {
		a.srv.SetScript(a.scriptText)
	}
	go a.pump(tracker)

	return a, nil
}

// buildTracker creates a fresh engine and worker for the given script using
// the current config.
func (a *App) buildTracker(scriptText string) (*threaded.Tracker, error) {
	cfg := a.config()
	engine := track.New(scriptText,
		track.WithWindowSize(cfg.Tracking.WindowSize),
		track.WithMatchThreshold(cfg.Tracking.MatchThreshold),
		track.WithBacktrackThreshold(cfg.Tracking.BacktrackThreshold),
		track.WithMaxJumpDistance(cfg.Tracking.MaxJumpDistance),
		track.WithMaxSkipDistance(cfg.Tracking.MaxSkipDistance),
	)
	return threaded.New(engine,
		threaded.WithQueueSize(cfg.Worker.QueueSize),
		threaded.WithThrottle(time.Duration(cfg.Worker.ThrottleMS)*time.Millisecond),
		threaded.WithDisplayWindow(cfg.Display.PastLines, cfg.Display.FutureLines),
	)
}

func (a *App) config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

func (a *App) currentTracker() *threaded.Tracker {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tracker
}

// SetScript replaces the tracked script. The old worker is drained and a
// fresh engine starts at the top of the new script.
func (a *App) SetScript(text string) {
	tracker, err := a.buildTracker(text)
	if err != nil {
		slog.Error("script change failed, keeping previous tracker", "err", err)
		return
	}

	a.mu.Lock()
	old := a.tracker
	a.tracker = tracker
	a.scriptText = text
	a.mu.Unlock()

	go a.pump(tracker)

	if old != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := old.Shutdown(ctx); err != nil {
			slog.Warn("previous tracker did not stop cleanly", "err", err)
		}
	}
	slog.Info("script replaced", "length", len(text))
}

// Reset moves the tracker back to the top of the script.
func (a *App) Reset() bool {
	return a.currentTracker().Reset()
}

// JumpTo moves the tracker to an explicit word index.
func (a *App) JumpTo(wordIndex int) bool {
	return a.currentTracker().JumpTo(wordIndex)
}

// SetDisplayWindow adjusts the past/future line counts in results.
func (a *App) SetDisplayWindow(past, future int) bool {
	return a.currentTracker().SetDisplayWindow(past, future)
}

// Server exposes the web server, mainly so tests can drive its handler.
func (a *App) Server() *server.Server { return a.srv }

// Latest returns the most recent tracking result, if any.
func (a *App) Latest() (threaded.Result, bool) {
	return a.currentTracker().Latest()
}

// pump forwards tracking results to connected displays until the worker
// exits.
func (a *App) pump(t *threaded.Tracker) {
	for {
		select {
		case res := <-t.Results():
			a.srv.SendPosition(res)
		case <-t.Done():
			return
		}
	}
}

// Run starts the ASR session and config watcher, serves HTTP, and blocks
// until ctx is cancelled or a subsystem fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.onConfigChange)
		if err != nil {
			return fmt.Errorf("app: watch config: %w", err)
		}
		a.watcher = w
		a.closers = append(a.closers, func() error {
			w.Stop()
			return nil
		})
	}

	if a.recorder != nil {
		if err := a.recorder.Start(); err != nil {
			return fmt.Errorf("app: start transcript recording: %w", err)
		}
		a.closers = append(a.closers, a.recorder.Stop)
	}

	if a.provider != nil {
		g.Go(func() error {
			return a.runRecognition(ctx)
		})
	} else {
		slog.Warn("no ASR provider configured, running display-only")
	}

	g.Go(func() error {
		return a.srv.Run(ctx)
	})

	slog.Info("autocue running",
		"addr", a.config().Server.ListenAddr,
		"asr", a.provider != nil)

	return g.Wait()
}

// errStreamEnded marks a recognition stream that closed while the app was
// still running, as opposed to a shutdown-driven teardown.
var errStreamEnded = errors.New("app: recognition stream ended")

// runRecognition keeps one recognition stream alive for the life of ctx,
// redialling with backoff when the server drops the connection mid-show.
func (a *App) runRecognition(ctx context.Context) error {
	r := resilience.NewRedialer(resilience.RedialConfig{Name: "asr"})

	err := r.Run(ctx, func(ctx context.Context) error {
		cfg := a.config()
		session, err := a.provider.StartStream(ctx, asr.StreamConfig{
			SampleRate:    cfg.ASR.SampleRate,
			Channels:      1,
			ChunkDuration: time.Duration(cfg.ASR.ChunkMS) * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("start asr stream: %w", err)
		}
		defer session.Close()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.pumpTranscripts(ctx, session.Partials(), true)
		}()
		go func() {
			defer wg.Done()
			a.pumpTranscripts(ctx, session.Finals(), false)
		}()
		wg.Wait()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errStreamEnded
	})
	if err != nil {
		return fmt.Errorf("app: recognition: %w", err)
	}
	return nil
}

// pumpTranscripts feeds one transcript channel into the tracking worker.
// Empty texts are skipped; rejected submissions are already counted by the
// worker.
func (a *App) pumpTranscripts(ctx context.Context, ch <-chan types.Transcript, isPartial bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-ch:
			if !ok {
				return
			}
			if t.Text == "" {
				continue
			}
			if a.recorder != nil {
				a.recorder.Record(t.Text, !isPartial)
			}
			a.currentTracker().SubmitUpdate(t.Text, isPartial)
		}
	}
}

// onConfigChange applies a reloaded config file to the running app.
func (a *App) onConfigChange(old, next *config.Config) {
	diff := config.Diff(old, next)
	if !diff.Changed() {
		return
	}

	a.mu.Lock()
	a.cfg = next
	script := a.scriptText
	a.mu.Unlock()

	if diff.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(diff.NewLogLevel.Level())
		slog.Info("log level changed", "level", diff.NewLogLevel)
	}
	if diff.DisplayChanged {
		a.srv.UpdateSettings(next.Display)
	}
	if diff.TrackingChanged {
		slog.Info("tracking settings changed, restarting tracker")
		a.SetScript(script)
	}
	if diff.RestartRequired {
		slog.Warn("config change requires a restart to take effect")
	}
}

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.currentTracker().Shutdown(ctx); err != nil {
			slog.Warn("tracker shutdown error", "err", err)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
