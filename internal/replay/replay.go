// Package replay feeds a recorded transcript through the tracking engine
// and reports every position change. It exists to diagnose tracking issues
// offline: take the transcript log from a bad session, replay it against
// the same script, and read where the cursor went wrong.
package replay

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/EdNutting/autocue/internal/track"
)

// EventKind classifies how one transcript update moved the cursor.
type EventKind string

const (
	KindAdvance     EventKind = "advance"
	KindNoChange    EventKind = "no_change"
	KindRegress     EventKind = "regress"
	KindBacktrack   EventKind = "backtrack"
	KindForwardJump EventKind = "forward_jump"
)

// forwardJumpDelta is how far past the previous position an update must
// land to be reported as a jump rather than ordinary advancement.
const forwardJumpDelta = 5

// Event records the outcome of one transcript update.
type Event struct {
	// Line is the 1-based transcript line that produced this event.
	Line int

	// Transcript is the text fed to the engine, truncated for display.
	Transcript string

	// Before and After are the speakable-word cursor around the update.
	Before int
	After  int

	// Word is the script word at the cursor after the update.
	Word string

	Kind EventKind

	// Corrected is set when the validation pass moved the cursor again,
	// with CorrectedTo holding the validated position.
	Corrected   bool
	CorrectedTo int
}

// Summary aggregates a full replay run.
type Summary struct {
	Lines         int
	Updates       int
	FinalPosition int
	TotalWords    int

	Advances     int
	NoChanges    int
	Backtracks   int
	ForwardJumps int
	Corrections  int

	Events []Event
}

// Replayer drives a fresh engine through a recorded transcript.
type Replayer struct {
	engine     *track.Engine
	out        io.Writer
	verbose    bool
	wordByWord bool
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithVerbose reports every update, not just backtracks and jumps.
func WithVerbose() Option {
	return func(r *Replayer) { r.verbose = true }
}

// WithWordByWord feeds each line one word at a time as partial results,
// mimicking how a streaming recognizer delivers text. The last word of a
// line is fed as a final.
func WithWordByWord() Option {
	return func(r *Replayer) { r.wordByWord = true }
}

// WithOutput sets where the replay report is written. Defaults to
// [io.Discard]; summaries are always available from [Replayer.Run].
func WithOutput(w io.Writer) Option {
	return func(r *Replayer) { r.out = w }
}

// New creates a Replayer tracking the given script. Engine options are
// passed through so a replay can reproduce a session's tuning.
func New(scriptText string, engineOpts []track.Option, opts ...Option) *Replayer {
	r := &Replayer{
		engine: track.New(scriptText, engineOpts...),
		out:    io.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadTranscript reads transcript lines, dropping session metadata lines
// (starting with "===") and blanks.
func LoadTranscript(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "===") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("replay: read transcript: %w", err)
	}
	return lines, nil
}

// Run replays the transcript lines and returns the aggregated summary.
func (r *Replayer) Run(lines []string) *Summary {
	sum := &Summary{
		Lines:      len(lines),
		TotalWords: r.engine.TotalWords(),
	}

	r.writeHeader(sum)

	for i, line := range lines {
		if r.wordByWord {
			r.replayLineWordByWord(i+1, line, sum)
		} else {
			r.replayLine(i+1, line, sum)
		}
	}

	sum.FinalPosition = r.engine.Position().SpeakableIndex
	r.writeSummary(sum)
	return sum
}

// replayLine feeds a whole line as one final result, the way a recognizer
// delivers a completed utterance.
func (r *Replayer) replayLine(lineNum int, line string, sum *Summary) {
	fmt.Fprintf(r.out, "\n--- line %d: %q ---\n", lineNum, truncate(line, 60))
	r.step(lineNum, line, false, sum)
}

// replayLineWordByWord rebuilds the partial-result stream: each prefix of
// the line is a partial, the full line a final.
func (r *Replayer) replayLineWordByWord(lineNum int, line string, sum *Summary) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return
	}
	fmt.Fprintf(r.out, "\n--- line %d ---\n", lineNum)
	for i := range words {
		prefix := strings.Join(words[:i+1], " ")
		isPartial := i < len(words)-1
		r.step(lineNum, prefix, isPartial, sum)
	}
}

// step feeds one update to the engine, classifies the movement, runs the
// validation pass when armed, and records the event.
func (r *Replayer) step(lineNum int, transcript string, isPartial bool, sum *Summary) {
	before := r.engine.Position().SpeakableIndex
	pos := r.engine.Update(transcript, isPartial)
	after := pos.SpeakableIndex

	ev := Event{
		Line:       lineNum,
		Transcript: truncate(transcript, 60),
		Before:     before,
		After:      after,
		Word:       r.wordAt(after),
		Kind:       classify(before, after, pos.IsBacktrack),
	}

	if !isPartial && r.engine.ValidationArmed() {
		validated, wasBacktrack := r.engine.Validate(transcript)
		if wasBacktrack || validated != after {
			ev.Corrected = true
			ev.CorrectedTo = validated
			if wasBacktrack {
				ev.Kind = KindBacktrack
			}
			sum.Corrections++
		}
	}

	sum.Updates++
	switch ev.Kind {
	case KindAdvance:
		sum.Advances++
	case KindNoChange:
		sum.NoChanges++
	case KindBacktrack:
		sum.Backtracks++
	case KindForwardJump:
		sum.ForwardJumps++
	}
	sum.Events = append(sum.Events, ev)

	r.writeEvent(ev)
}

func classify(before, after int, isBacktrack bool) EventKind {
	switch {
	case isBacktrack:
		return KindBacktrack
	case after > before+forwardJumpDelta:
		return KindForwardJump
	case after > before:
		return KindAdvance
	case after == before:
		return KindNoChange
	default:
		return KindRegress
	}
}

// wordAt returns the speakable word at the given cursor, or "<END>" past
// the script.
func (r *Replayer) wordAt(idx int) string {
	words := r.engine.Script().SpeakableWords
	if idx < 0 || idx >= len(words) {
		return "<END>"
	}
	return words[idx].Text
}

func (r *Replayer) writeHeader(sum *Summary) {
	fmt.Fprintf(r.out, "TRANSCRIPT REPLAY\n")
	fmt.Fprintf(r.out, "script words: %d\n", sum.TotalWords)
	fmt.Fprintf(r.out, "transcript lines: %d\n", sum.Lines)
}

func (r *Replayer) writeEvent(ev Event) {
	switch ev.Kind {
	case KindBacktrack, KindForwardJump:
		fmt.Fprintf(r.out, "  *** %s *** pos %d -> %d, now at %q\n",
			strings.ToUpper(string(ev.Kind)), ev.Before, ev.After, ev.Word)
	default:
		if r.verbose {
			fmt.Fprintf(r.out, "  [%4d] %q (%s)\n", ev.After, ev.Word, ev.Kind)
		}
	}
	if ev.Corrected {
		fmt.Fprintf(r.out, "  [validation] corrected %d -> %d\n", ev.After, ev.CorrectedTo)
	}
}

func (r *Replayer) writeSummary(sum *Summary) {
	fmt.Fprintf(r.out, "\nSUMMARY\n")
	fmt.Fprintf(r.out, "updates:       %d\n", sum.Updates)
	fmt.Fprintf(r.out, "final position: %d / %d\n", sum.FinalPosition, sum.TotalWords)
	fmt.Fprintf(r.out, "advances:      %d\n", sum.Advances)
	fmt.Fprintf(r.out, "no changes:    %d\n", sum.NoChanges)
	fmt.Fprintf(r.out, "backtracks:    %d\n", sum.Backtracks)
	fmt.Fprintf(r.out, "forward jumps: %d\n", sum.ForwardJumps)
	fmt.Fprintf(r.out, "corrections:   %d\n", sum.Corrections)

	for _, ev := range sum.Events {
		if ev.Kind == KindBacktrack || ev.Kind == KindForwardJump {
			fmt.Fprintf(r.out, "  line %d: %s to %d (%q)\n", ev.Line, ev.Kind, ev.After, ev.Word)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
