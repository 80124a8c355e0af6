// Package threaded runs a tracking engine on a dedicated worker goroutine,
// isolating it from the real-time audio/ASR loop.
//
// The worker owns the only live engine and processes one request at a
// time. Submission never blocks: partial transcript updates are throttled
// and shed under backpressure, final updates are dropped only as a last
// resort and always counted, and results are published to a bounded
// channel that evicts its oldest entry rather than stalling the worker.
package threaded

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/EdNutting/autocue/internal/observe"
	"github.com/EdNutting/autocue/internal/track"
)

type requestKind int

const (
	kindUpdate requestKind = iota
	kindReset
	kindJump
	kindDisplay
	kindShutdown
)

type request struct {
	kind        requestKind
	transcript  string
	isPartial   bool
	jumpIndex   int
	pastLines   int
	futureLines int
}

// Result is the outcome of one processed transcript update.
type Result struct {
	Position    track.Position
	Lines       []track.Line
	CurrentLine int
	WordOffset  int
	Progress    float64
	Transcript  string
	IsPartial   bool
}

// Tracker wraps a [track.Engine] behind a single worker goroutine.
type Tracker struct {
	engine *track.Engine

	mu          sync.Mutex
	queue       []request
	queueSize   int
	pastLines   int
	futureLines int
	latest      *Result

	wake    chan struct{}
	results chan Result
	done    chan struct{}

	limiter      *rate.Limiter
	pollInterval time.Duration

	shuttingDown    atomic.Bool
	droppedPartials atomic.Int64
	droppedFinals   atomic.Int64

	log     *slog.Logger
	metrics *observe.Metrics
}

// Option configures a Tracker.
type Option func(*options)

type options struct {
	queueSize      int
	throttle       time.Duration
	pollInterval   time.Duration
	startupTimeout time.Duration
	pastLines      int
	futureLines    int
	log            *slog.Logger
	metrics        *observe.Metrics
}

// WithQueueSize sets the request and result channel capacity.
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// WithThrottle sets the minimum interval between accepted partial updates.
func WithThrottle(d time.Duration) Option {
	return func(o *options) { o.throttle = d }
}

// WithStartupTimeout bounds how long construction waits for the worker.
func WithStartupTimeout(d time.Duration) Option {
	return func(o *options) { o.startupTimeout = d }
}

// WithDisplayWindow sets the initial past/future line counts for results.
func WithDisplayWindow(past, future int) Option {
	return func(o *options) {
		o.pastLines = past
		o.futureLines = future
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics sets the metrics collaborator.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New starts the worker and returns the tracker. It fails if the worker
// does not come up within the startup timeout.
func New(engine *track.Engine, opts ...Option) (*Tracker, error) {
	o := options{
		queueSize:      10,
		throttle:       50 * time.Millisecond,
		pollInterval:   100 * time.Millisecond,
		startupTimeout: 5 * time.Second,
		pastLines:      1,
		futureLines:    8,
		log:            slog.Default(),
		metrics:        observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	t := &Tracker{
		engine:       engine,
		queueSize:    o.queueSize,
		pastLines:    o.pastLines,
		futureLines:  o.futureLines,
		wake:         make(chan struct{}, 1),
		results:      make(chan Result, o.queueSize),
		done:         make(chan struct{}),
		limiter:      rate.NewLimiter(rate.Every(o.throttle), 1),
		pollInterval: o.pollInterval,
		log:          o.log,
		metrics:      o.metrics,
	}

	started := make(chan struct{})
	go t.run(started)

	select {
	case <-started:
	case <-time.After(o.startupTimeout):
		t.shuttingDown.Store(true)
		return nil, fmt.Errorf("tracker worker did not start within %s", o.startupTimeout)
	}

	return t, nil
}

// SubmitUpdate queues a transcript update without blocking. It reports
// whether the update was admitted. Partials beyond the throttle rate are
// rejected outright; when the queue is full, up to three queued partials
// are shed to admit a new one, while a final that cannot be admitted is
// dropped, counted, and logged.
func (t *Tracker) SubmitUpdate(transcript string, isPartial bool) bool {
	if t.shuttingDown.Load() {
		return false
	}

	if isPartial && !t.limiter.Allow() {
		t.droppedPartials.Add(1)
		t.metrics.RecordDroppedUpdate(context.Background(), "partial")
		return false
	}

	req := request{kind: kindUpdate, transcript: transcript, isPartial: isPartial}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.queue) >= t.queueSize {
		if isPartial {
			t.shedPartialsLocked(3)
		}
		if len(t.queue) >= t.queueSize {
			if isPartial {
				t.droppedPartials.Add(1)
				t.metrics.RecordDroppedUpdate(context.Background(), "partial")
			} else {
				t.droppedFinals.Add(1)
				t.metrics.RecordDroppedUpdate(context.Background(), "final")
				t.log.Warn("dropped final transcript update, queue full",
					"queued", len(t.queue),
					"dropped_total", t.droppedFinals.Load())
			}
			return false
		}
	}

	t.enqueueLocked(req)
	return true
}

// shedPartialsLocked removes up to n queued partial updates, preserving
// queue order for control commands and finals.
func (t *Tracker) shedPartialsLocked(n int) {
	kept := t.queue[:0]
	shed := 0
	for _, r := range t.queue {
		if shed < n && r.kind == kindUpdate && r.isPartial {
			shed++
			continue
		}
		kept = append(kept, r)
	}
	t.queue = kept
	if shed > 0 {
		t.droppedPartials.Add(int64(shed))
		for range shed {
			t.metrics.RecordDroppedUpdate(context.Background(), "partial")
		}
		t.metrics.QueueDepth.Add(context.Background(), int64(-shed))
	}
}

func (t *Tracker) enqueueLocked(req request) {
	t.queue = append(t.queue, req)
	t.metrics.QueueDepth.Add(context.Background(), 1)
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// submitControl queues a control command, waiting briefly if the queue is
// full. Control commands are never shed.
func (t *Tracker) submitControl(req request) bool {
	if t.shuttingDown.Load() && req.kind != kindShutdown {
		return false
	}

	deadline := time.Now().Add(time.Second)
	for {
		t.mu.Lock()
		if len(t.queue) < t.queueSize || req.kind == kindShutdown {
			t.enqueueLocked(req)
			t.mu.Unlock()
			return true
		}
		t.mu.Unlock()

		if time.Now().After(deadline) {
			t.log.Warn("control command rejected, queue full", "kind", req.kind)
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Reset queues a reset of the engine to the start of the script.
func (t *Tracker) Reset() bool {
	return t.submitControl(request{kind: kindReset})
}

// JumpTo queues a jump to an explicit word index.
func (t *Tracker) JumpTo(index int) bool {
	return t.submitControl(request{kind: kindJump, jumpIndex: index})
}

// SetDisplayWindow queues an update of the past/future line counts used
// when building results.
func (t *Tracker) SetDisplayWindow(past, future int) bool {
	return t.submitControl(request{kind: kindDisplay, pastLines: past, futureLines: future})
}

// Results returns the channel results are published on. When the channel
// is full the oldest result is evicted, so slow consumers see the freshest
// positions.
func (t *Tracker) Results() <-chan Result { return t.results }

// Done returns a channel closed when the worker has exited. No further
// results are published after it closes.
func (t *Tracker) Done() <-chan struct{} { return t.done }

// Latest returns the most recent result without consuming from the
// results channel.
func (t *Tracker) Latest() (Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil {
		return Result{}, false
	}
	return *t.latest, true
}

// DroppedPartials returns how many partial updates were shed or throttled.
func (t *Tracker) DroppedPartials() int64 { return t.droppedPartials.Load() }

// DroppedFinals returns how many final updates were dropped under
// backpressure.
func (t *Tracker) DroppedFinals() int64 { return t.droppedFinals.Load() }

// Shutdown stops the worker cooperatively and waits for it to exit,
// bounded by the context deadline.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.shuttingDown.Store(true)
	t.submitControl(request{kind: kindShutdown})

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("tracker worker did not stop: %w", ctx.Err())
	}
}

// run is the worker loop. It drains one request at a time and checks the
// shutdown flag at least once per poll interval.
func (t *Tracker) run(started chan<- struct{}) {
	defer close(t.done)

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	close(started)
	t.log.Info("tracker worker started")

	for {
		req, ok := t.pop()
		if !ok {
			if t.shuttingDown.Load() {
				t.log.Info("tracker worker stopping")
				return
			}
			select {
			case <-t.wake:
			case <-ticker.C:
			}
			continue
		}

		if req.kind == kindShutdown {
			t.log.Info("tracker worker stopping")
			return
		}
		t.process(req)
	}
}

func (t *Tracker) pop() (request, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.queue) == 0 {
		return request{}, false
	}
	req := t.queue[0]
	t.queue = t.queue[1:]
	t.metrics.QueueDepth.Add(context.Background(), -1)
	return req, true
}

func (t *Tracker) process(req request) {
	ctx, span := observe.StartSpan(context.Background(), "tracker.process",
		trace.WithAttributes(observe.Attr("kind", kindName(req.kind))))
	defer span.End()

	switch req.kind {
	case kindReset:
		t.engine.Reset()
		t.publish(ctx, t.buildResult("", false))

	case kindJump:
		t.engine.JumpTo(req.jumpIndex)
		t.publish(ctx, t.buildResult("", false))

	case kindDisplay:
		t.mu.Lock()
		t.pastLines = req.pastLines
		t.futureLines = req.futureLines
		t.mu.Unlock()

	case kindUpdate:
		start := time.Now()
		pos := t.engine.Update(req.transcript, req.isPartial)
		t.metrics.UpdateDuration.Record(ctx, time.Since(start).Seconds())

		if !req.isPartial && t.engine.ValidationArmed() {
			vstart := time.Now()
			_, jumped := t.engine.Validate(req.transcript)
			t.metrics.ValidationDuration.Record(ctx, time.Since(vstart).Seconds())
			// Validation can move the cursor even without a jump (silent
			// drift correction), so always publish the post-validation
			// position or the result's lines would disagree with it.
			corrected := t.engine.Position()
			corrected.Confidence = pos.Confidence
			corrected.IsBacktrack = pos.IsBacktrack || jumped
			pos = corrected
		}
		if pos.IsBacktrack {
			t.metrics.RecordCorrection(ctx, "backtrack")
		}

		result := t.buildResult(req.transcript, req.isPartial)
		result.Position = pos
		t.publish(ctx, result)
	}
}

func (t *Tracker) buildResult(transcript string, isPartial bool) Result {
	t.mu.Lock()
	past, future := t.pastLines, t.futureLines
	t.mu.Unlock()

	lines, currentLine, wordOffset := t.engine.DisplayLines(past, future)
	return Result{
		Position:    t.engine.Position(),
		Lines:       lines,
		CurrentLine: currentLine,
		WordOffset:  wordOffset,
		Progress:    t.engine.Progress(),
		Transcript:  transcript,
		IsPartial:   isPartial,
	}
}

// publish delivers a result without ever blocking the worker: a full
// channel loses its oldest entry. The latest result is also cached for
// point-in-time reads.
func (t *Tracker) publish(_ context.Context, result Result) {
	t.mu.Lock()
	r := result
	t.latest = &r
	t.mu.Unlock()

	for {
		select {
		case t.results <- result:
			return
		default:
			select {
			case <-t.results:
			default:
			}
		}
	}
}

func kindName(k requestKind) string {
	switch k {
	case kindUpdate:
		return "update"
	case kindReset:
		return "reset"
	case kindJump:
		return "jump"
	case kindDisplay:
		return "display"
	case kindShutdown:
		return "shutdown"
	}
	return "unknown"
}
