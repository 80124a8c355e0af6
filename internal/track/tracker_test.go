package track_test

import (
	"math"
	"testing"

	"github.com/EdNutting/autocue/internal/track"
)

const foxScript = "The quick brown fox jumps over the lazy dog sits quietly"

const natoScript = "alpha bravo charlie delta echo foxtrot golf hotel india juliet " +
	"kilo lima mike november oscar papa quebec romeo sierra tango " +
	"uniform victor whiskey xray yankee zulu"

func TestUpdate_AdvancesThroughVerbatimReading(t *testing.T) {
	t.Parallel()

	e := track.New(foxScript)

	transcripts := []string{
		"the",
		"the quick",
		"the quick brown",
		"the quick brown fox",
		"the quick brown fox jumps",
	}

	prev := 0
	for i, tr := range transcripts {
		pos := e.Update(tr, false)
		if pos.SpeakableIndex != i+1 {
			t.Errorf("after %q: SpeakableIndex = %d, want %d", tr, pos.SpeakableIndex, i+1)
		}
		if pos.SpeakableIndex < prev {
			t.Errorf("position moved backwards: %d -> %d", prev, pos.SpeakableIndex)
		}
		if pos.Confidence != 100 {
			t.Errorf("after %q: Confidence = %v, want 100", tr, pos.Confidence)
		}
		prev = pos.SpeakableIndex
	}
}

func TestUpdate_RepeatedTranscriptIsIdempotent(t *testing.T) {
	t.Parallel()

	e := track.New(foxScript)

	first := e.Update("the quick brown", false)
	second := e.Update("the quick brown", false)

	if second.SpeakableIndex != first.SpeakableIndex {
		t.Errorf("repeated update moved position: %d -> %d",
			first.SpeakableIndex, second.SpeakableIndex)
	}
}

func TestUpdate_PartialDoesNotAdvance(t *testing.T) {
	t.Parallel()

	e := track.New(foxScript)

	pos := e.Update("the quick brown", true)
	if pos.SpeakableIndex != 0 {
		t.Errorf("partial update advanced to %d, want 0", pos.SpeakableIndex)
	}
}

func TestUpdate_EmptyTranscript(t *testing.T) {
	t.Parallel()

	e := track.New(foxScript)
	e.Update("the quick", false)

	pos := e.Update("   ", false)
	if pos.SpeakableIndex != 2 {
		t.Errorf("blank update moved position to %d, want 2", pos.SpeakableIndex)
	}
}

func TestUpdate_SkipIsBounded(t *testing.T) {
	t.Parallel()

	// A word two ahead is reachable.
	e := track.New("alpha bravo charlie delta echo")
	e.Update("alpha", false)
	pos := e.Update("alpha delta", false)
	if pos.SpeakableIndex != 4 {
		t.Errorf("skip of 2: SpeakableIndex = %d, want 4", pos.SpeakableIndex)
	}

	// A word three ahead is not.
	e = track.New("alpha bravo charlie delta echo")
	e.Update("alpha", false)
	pos = e.Update("alpha echo", false)
	if pos.SpeakableIndex != 1 {
		t.Errorf("skip of 3: SpeakableIndex = %d, want 1", pos.SpeakableIndex)
	}
}

func TestUpdate_FillerWordsSkipped(t *testing.T) {
	t.Parallel()

	e := track.New("hello world")
	pos := e.Update("hello um uh world", false)
	if pos.SpeakableIndex != 2 {
		t.Errorf("SpeakableIndex = %d, want 2", pos.SpeakableIndex)
	}
}

func TestUpdate_FillerMatchingScriptIsKept(t *testing.T) {
	t.Parallel()

	// "right" is normally a filler but here it is the expected word.
	e := track.New("turn right here")
	pos := e.Update("turn right here", false)
	if pos.SpeakableIndex != 3 {
		t.Errorf("SpeakableIndex = %d, want 3", pos.SpeakableIndex)
	}
}

func TestUpdate_StutterSkipped(t *testing.T) {
	t.Parallel()

	e := track.New("hello world today")
	pos := e.Update("hello hello world", false)
	if pos.SpeakableIndex != 2 {
		t.Errorf("SpeakableIndex = %d, want 2", pos.SpeakableIndex)
	}
}

func TestUpdate_NoiseBurstKeepsTrailingWords(t *testing.T) {
	t.Parallel()

	e := track.New(natoScript)
	e.Update("alpha bravo charlie", false)

	// Three garbled words stop optimistic matching mid-update. The real
	// words behind them must carry over to the next update, not vanish
	// into the transcript diff.
	pos := e.Update("alpha bravo charlie zzz yyy xxx delta echo foxtrot golf", false)
	if pos.IsBacktrack {
		t.Fatalf("noise burst caused a correction to %d", pos.SpeakableIndex)
	}

	pos = e.Update("alpha bravo charlie zzz yyy xxx delta echo foxtrot golf hotel", false)
	if pos.SpeakableIndex != 8 {
		t.Errorf("SpeakableIndex = %d, want 8", pos.SpeakableIndex)
	}
}

func TestUpdate_SplitCompoundWordJoined(t *testing.T) {
	t.Parallel()

	// "framerate" spoken as two words. Too dissimilar for a fuzzy match on
	// either half, and last in the script so skip-ahead cannot recover.
	e := track.New("check the framerate")
	pos := e.Update("check the frame rate", false)
	if pos.SpeakableIndex != 3 {
		t.Errorf("SpeakableIndex = %d, want 3", pos.SpeakableIndex)
	}
	if pos.Confidence != 100 {
		t.Errorf("Confidence = %v, want 100", pos.Confidence)
	}
}

func TestUpdate_UnrecognizedWordsHoldPosition(t *testing.T) {
	t.Parallel()

	e := track.New("alpha bravo charlie delta echo foxtrot")
	pos := e.Update("zzz yyy xxx", false)
	if pos.SpeakableIndex != 0 {
		t.Errorf("SpeakableIndex = %d, want 0", pos.SpeakableIndex)
	}
	if pos.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", pos.Confidence)
	}
}

func TestUpdate_RestartTriggersBacktrack(t *testing.T) {
	t.Parallel()

	e := track.New(foxScript)
	e.Update("the quick brown fox jumps over the lazy", false)

	// The speaker restarts the sentence; none of the words match at the
	// cursor, so a validation pass runs immediately.
	pos := e.Update("quick brown fox", false)
	if !pos.IsBacktrack {
		t.Fatal("IsBacktrack = false, want true")
	}
	if pos.SpeakableIndex >= 5 {
		t.Errorf("SpeakableIndex = %d, want < 5", pos.SpeakableIndex)
	}
}

func TestValidate_Backtrack(t *testing.T) {
	t.Parallel()

	e := track.New(foxScript)
	e.Update("the quick brown fox jumps over the lazy", false)

	pos, jumped := e.Validate("the quick brown")
	if !jumped {
		t.Fatal("jumped = false, want true")
	}
	if pos >= 5 {
		t.Errorf("position = %d, want < 5", pos)
	}
}

func TestValidate_NoFalseBacktrack(t *testing.T) {
	t.Parallel()

	e := track.New(foxScript)
	e.Update("the quick brown fox jumps over the lazy", false)

	// The transcript agrees with the script at the cursor, so the matching
	// words earlier in the sentence must not pull the position back.
	pos, jumped := e.Validate("over the lazy")
	if jumped {
		t.Fatal("jumped = true, want false")
	}
	if pos != 8 {
		t.Errorf("position = %d, want 8", pos)
	}
}

func TestValidate_ForwardJump(t *testing.T) {
	t.Parallel()

	e := track.New(natoScript)
	e.Update("alpha bravo charlie delta echo", false)

	pos, jumped := e.Validate("papa quebec romeo")
	if !jumped {
		t.Fatal("jumped = false, want true")
	}
	if pos <= 5 {
		t.Errorf("position = %d, want well past 5", pos)
	}
}

func TestValidate_TooFewWordsIsNoOp(t *testing.T) {
	t.Parallel()

	e := track.New(foxScript)
	e.Update("the quick brown fox jumps over the lazy", false)

	pos, jumped := e.Validate("the quick")
	if jumped {
		t.Fatal("jumped = true, want false")
	}
	if pos != 8 {
		t.Errorf("position = %d, want 8", pos)
	}
}

func TestValidate_JumpDistanceCapped(t *testing.T) {
	t.Parallel()

	e := track.New(natoScript, track.WithMaxJumpDistance(20))
	e.JumpTo(24)

	// The start of the line is always searched, but a correction further
	// than the cap must be refused.
	pos, jumped := e.Validate("alpha bravo charlie")
	if jumped {
		t.Fatal("jumped = true, want false")
	}
	if pos != 24 {
		t.Errorf("position = %d, want 24", pos)
	}
}

func TestUpdate_NumberExpansion(t *testing.T) {
	t.Parallel()

	for _, spoken := range []string{
		"the answer is one hundred",
		"the answer is a hundred",
		"the answer is one zero zero",
	} {
		e := track.New("The answer is 100")
		pos := e.Update(spoken, false)
		if pos.SpeakableIndex != 4 {
			t.Errorf("%q: SpeakableIndex = %d, want 4", spoken, pos.SpeakableIndex)
		}
	}
}

func TestUpdate_PartialExpansionHoldsOnToken(t *testing.T) {
	t.Parallel()

	e := track.New("The answer is 100")

	pos := e.Update("the answer is one", false)
	if pos.SpeakableIndex != 3 {
		t.Fatalf("mid-expansion SpeakableIndex = %d, want 3", pos.SpeakableIndex)
	}

	pos = e.Update("the answer is one hundred", false)
	if pos.SpeakableIndex != 4 {
		t.Errorf("completed SpeakableIndex = %d, want 4", pos.SpeakableIndex)
	}
}

func TestJumpToAndReset(t *testing.T) {
	t.Parallel()

	e := track.New(foxScript)

	e.JumpTo(5)
	if got := e.Position().SpeakableIndex; got != 5 {
		t.Errorf("after JumpTo(5): SpeakableIndex = %d, want 5", got)
	}

	e.Reset()
	if got := e.Position().SpeakableIndex; got != 0 {
		t.Errorf("after Reset: SpeakableIndex = %d, want 0", got)
	}
}

func TestJumpTo_Clamped(t *testing.T) {
	t.Parallel()

	e := track.New(foxScript)

	e.JumpTo(1000)
	if got := e.Position().SpeakableIndex; got != e.TotalWords()-1 {
		t.Errorf("JumpTo past end: SpeakableIndex = %d, want %d", got, e.TotalWords()-1)
	}

	e.JumpTo(-5)
	if got := e.Position().SpeakableIndex; got != 0 {
		t.Errorf("JumpTo negative: SpeakableIndex = %d, want 0", got)
	}
}

func TestDisplayLines(t *testing.T) {
	t.Parallel()

	e := track.New("line one here\nline two there\nline three end")
	e.JumpTo(4)

	lines, current, wordOffset := e.DisplayLines(1, 1)
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	if current != 1 {
		t.Errorf("current = %d, want 1", current)
	}
	if wordOffset != 1 {
		t.Errorf("wordOffset = %d, want 1", wordOffset)
	}

	lines, current, _ = e.DisplayLines(0, 0)
	if len(lines) != 1 {
		t.Errorf("len(lines) = %d, want 1", len(lines))
	}
	if current != 0 {
		t.Errorf("current = %d, want 0", current)
	}
}

func TestProgress(t *testing.T) {
	t.Parallel()

	e := track.New("alpha bravo charlie delta")

	if got := e.Progress(); got != 0 {
		t.Errorf("initial Progress = %v, want 0", got)
	}

	e.JumpTo(2)
	if got := e.Progress(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("mid Progress = %v, want 0.5", got)
	}

	e.Update("charlie delta", false)
	if got := e.Progress(); math.Abs(got-1) > 1e-9 {
		t.Errorf("final Progress = %v, want 1", got)
	}
}

func TestValidationArmed(t *testing.T) {
	t.Parallel()

	e := track.New(foxScript)

	if e.ValidationArmed() {
		t.Fatal("armed before any words")
	}

	e.Update("the quick brown fox jumps", false)
	if !e.ValidationArmed() {
		t.Fatal("not armed after five words")
	}

	e.Validate("the quick brown fox jumps")
	if e.ValidationArmed() {
		t.Fatal("still armed after validation")
	}
}
