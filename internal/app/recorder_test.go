package app_test

import (
	"os"
	"strings"
	"testing"

	"github.com/EdNutting/autocue/internal/app"
	"github.com/EdNutting/autocue/internal/replay"
)

func TestRecorder_RoundTrip(t *testing.T) {
	t.Parallel()
	r := app.NewRecorder(t.TempDir())

	if err := r.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if !r.IsActive() {
		t.Error("IsActive() = false after Start")
	}

	r.Record("the quick brown", true)
	r.Record("", true)              // empty, skipped
	r.Record("partial text", false) // partial, skipped
	r.Record("fox jumps over", true)

	info := r.Info()
	if info.Lines != 2 {
		t.Errorf("Lines = %d, want 2", info.Lines)
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if r.IsActive() {
		t.Error("IsActive() = true after Stop")
	}

	f, err := os.Open(info.Path)
	if err != nil {
		t.Fatalf("open recording: %v", err)
	}
	defer f.Close()

	lines, err := replay.LoadTranscript(f)
	if err != nil {
		t.Fatalf("LoadTranscript() error: %v", err)
	}
	want := []string{"the quick brown", "fox jumps over"}
	if len(lines) != len(want) {
		t.Fatalf("got %d transcript lines, want %d: %v", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestRecorder_SecondStartFails(t *testing.T) {
	t.Parallel()
	r := app.NewRecorder(t.TempDir())

	if err := r.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer r.Stop()

	if err := r.Start(); err == nil {
		t.Error("second Start() succeeded, want error")
	}
	if !strings.Contains(r.Info().Path, "transcript-") {
		t.Errorf("Path = %q, want transcript- prefix", r.Info().Path)
	}
}

func TestRecorder_StopWithoutStartFails(t *testing.T) {
	t.Parallel()
	r := app.NewRecorder(t.TempDir())

	if err := r.Stop(); err == nil {
		t.Error("Stop() without Start succeeded, want error")
	}
	if r.Record("ignored", true); r.IsActive() {
		t.Error("Record activated a stopped recorder")
	}
}
