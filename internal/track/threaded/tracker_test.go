package threaded

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/EdNutting/autocue/internal/observe"
	"github.com/EdNutting/autocue/internal/track"
)

// newIdleTracker builds a tracker whose worker is not running, so queue
// contents are fully deterministic.
func newIdleTracker(queueSize, resultSize int) *Tracker {
	return &Tracker{
		engine:    track.New("alpha bravo charlie delta echo"),
		queueSize: queueSize,
		wake:      make(chan struct{}, 1),
		results:   make(chan Result, resultSize),
		done:      make(chan struct{}),
		limiter:   rate.NewLimiter(rate.Inf, 1),
		log:       slog.Default(),
		metrics:   observe.DefaultMetrics(),
	}
}

func TestSubmitUpdate_DropsFinalWhenFull(t *testing.T) {
	t.Parallel()

	tr := newIdleTracker(3, 3)

	for i := 0; i < 3; i++ {
		if !tr.SubmitUpdate("alpha", false) {
			t.Fatalf("final %d rejected with queue space available", i)
		}
	}

	if tr.SubmitUpdate("bravo", false) {
		t.Error("final admitted past queue capacity")
	}
	if got := tr.DroppedFinals(); got != 1 {
		t.Errorf("DroppedFinals = %d, want 1", got)
	}
}

func TestSubmitUpdate_ShedsQueuedPartials(t *testing.T) {
	t.Parallel()

	tr := newIdleTracker(3, 3)

	for i := 0; i < 3; i++ {
		if !tr.SubmitUpdate("alpha", true) {
			t.Fatalf("partial %d rejected with queue space available", i)
		}
	}

	// A new partial against a full queue sheds the queued ones.
	if !tr.SubmitUpdate("bravo", true) {
		t.Error("partial rejected after shedding")
	}
	if got := tr.DroppedPartials(); got != 3 {
		t.Errorf("DroppedPartials = %d, want 3", got)
	}
	if got := len(tr.queue); got != 1 {
		t.Errorf("queue length = %d, want 1", got)
	}
}

func TestSubmitUpdate_SheddingPreservesControls(t *testing.T) {
	t.Parallel()

	tr := newIdleTracker(4, 3)

	tr.SubmitUpdate("alpha", true)
	tr.SubmitUpdate("alpha bravo", true)
	tr.SubmitUpdate("alpha bravo charlie", true)
	if !tr.Reset() {
		t.Fatal("control rejected with queue space available")
	}

	if !tr.SubmitUpdate("delta", true) {
		t.Fatal("partial rejected after shedding")
	}

	if len(tr.queue) != 2 {
		t.Fatalf("queue length = %d, want 2", len(tr.queue))
	}
	if tr.queue[0].kind != kindReset {
		t.Errorf("queue[0].kind = %v, want reset", tr.queue[0].kind)
	}
	if tr.queue[1].kind != kindUpdate || !tr.queue[1].isPartial {
		t.Error("queue[1] is not the new partial")
	}
}

func TestSubmitUpdate_ThrottlesPartials(t *testing.T) {
	t.Parallel()

	tr := newIdleTracker(10, 3)
	tr.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	if !tr.SubmitUpdate("alpha", true) {
		t.Fatal("first partial rejected")
	}
	if tr.SubmitUpdate("alpha bravo", true) {
		t.Error("second partial admitted inside the throttle interval")
	}
	if got := tr.DroppedPartials(); got != 1 {
		t.Errorf("DroppedPartials = %d, want 1", got)
	}
}

func TestPublish_EvictsOldestResult(t *testing.T) {
	t.Parallel()

	tr := newIdleTracker(3, 2)

	tr.publish(context.Background(), Result{Progress: 0.1})
	tr.publish(context.Background(), Result{Progress: 0.2})
	tr.publish(context.Background(), Result{Progress: 0.3})

	first := <-tr.results
	second := <-tr.results
	if first.Progress != 0.2 || second.Progress != 0.3 {
		t.Errorf("results = %v, %v; want 0.2, 0.3", first.Progress, second.Progress)
	}

	latest, ok := tr.Latest()
	if !ok || latest.Progress != 0.3 {
		t.Errorf("Latest = %v, %v; want 0.3, true", latest.Progress, ok)
	}
}

func TestProcess_CorrectionPublishesEnginePosition(t *testing.T) {
	t.Parallel()

	tr := newIdleTracker(3, 3)
	tr.engine = track.New("the quick brown fox jumps over the lazy dog sits quietly")

	// The first utterance mis-anchors near the start of the script; the
	// follow-up word arms validation without advancing, so the correction
	// happens in the validation pass here rather than inside Update. The
	// published position must be the engine's post-validation position or
	// it would disagree with the lines built from it.
	tr.process(request{kind: kindUpdate, transcript: "over the lazy dog"})
	<-tr.results
	tr.process(request{kind: kindUpdate, transcript: "over the lazy dog sits"})

	res := <-tr.results
	if res.Position.SpeakableIndex <= 5 {
		t.Fatalf("no correction applied, published index = %d", res.Position.SpeakableIndex)
	}
	if got := tr.engine.Position().SpeakableIndex; res.Position.SpeakableIndex != got {
		t.Errorf("published index = %d, engine at %d", res.Position.SpeakableIndex, got)
	}
	if !res.Position.IsBacktrack {
		t.Error("IsBacktrack = false, want true")
	}
}

func TestTracker_ProcessesInOrder(t *testing.T) {
	t.Parallel()

	engine := track.New("alpha bravo charlie delta echo")
	tr, err := New(engine, WithThrottle(time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !tr.SubmitUpdate("alpha bravo", false) {
		t.Fatal("update rejected")
	}
	if !tr.JumpTo(4) {
		t.Fatal("jump rejected")
	}
	if !tr.Reset() {
		t.Fatal("reset rejected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	var got []int
	for {
		select {
		case r := <-tr.Results():
			got = append(got, r.Position.SpeakableIndex)
			continue
		default:
		}
		break
	}

	want := []int{2, 4, 0}
	if len(got) != len(want) {
		t.Fatalf("positions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("positions[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	latest, ok := tr.Latest()
	if !ok || latest.Position.SpeakableIndex != 0 {
		t.Errorf("Latest position = %v, %v; want 0, true", latest.Position.SpeakableIndex, ok)
	}
}

func TestTracker_RejectsAfterShutdown(t *testing.T) {
	t.Parallel()

	engine := track.New("alpha bravo")
	tr, err := New(engine)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if tr.SubmitUpdate("alpha", false) {
		t.Error("update admitted after shutdown")
	}
}
