// Package track aligns a live speech transcript against a fixed script,
// maintaining a stable current-word position for a scrolling display.
//
// The engine runs at two speeds. An optimistic pass advances the cursor
// word by word the moment new transcript words arrive. A validation pass
// re-anchors the cursor with a wider fuzzy window search when the
// optimistic pass stalls, catching restarts (backtracks) and skips
// (forward jumps) the fast path cannot see.
package track

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/EdNutting/autocue/internal/fuzzy"
	"github.com/EdNutting/autocue/internal/script"
)

const (
	// wordMatchThreshold is the similarity a single spoken word needs to
	// match a script word. Stricter than the window threshold because a
	// lone word carries less context.
	wordMatchThreshold = 75

	// maxConsecutiveMisses stops optimistic processing within one update,
	// waiting for more context instead of burning through the queue.
	maxConsecutiveMisses = 3

	// validationArmCount is how many processed words arm the validation
	// pass.
	validationArmCount = 5

	// skipCooldown disables skip-ahead matching for this many successful
	// matches after a correction, so the cursor re-settles before the
	// matcher is allowed to jump over script words again.
	skipCooldown = 5

	// driftTolerance is how far the optimistic cursor may drift from the
	// validated position before a silent correction pulls it in line.
	driftTolerance = 5

	// maxPendingWords bounds the carry-over word queue so sustained noise
	// cannot grow it without limit.
	maxPendingWords = 30
)

// fillerWords are common disfluencies skipped during optimistic matching
// unless they coincide with the expected script word.
var fillerWords = map[string]bool{
	"um": true, "uh": true, "ah": true, "er": true, "eh": true, "hm": true,
	"hmm": true, "mm": true, "mhm": true, "umm": true, "ahh": true,
	"err": true, "ehh": true, "uhh": true, "mmm": true, "huh": true,
	"like": true, "so": true, "well": true, "anyway": true, "basically": true,
	"actually": true, "literally": true, "honestly": true, "right": true,
	"okay": true, "ok": true, "yeah": true, "yes": true, "no": true,
}

// Position is an immutable snapshot of where the speaker is in the script.
type Position struct {
	// WordIndex is the raw token index, for display highlighting.
	WordIndex int
	// LineIndex is the display line the position falls on.
	LineIndex int
	// SpeakableIndex is the internal cursor into the speakable word list.
	SpeakableIndex int
	// Confidence is 100 when the update advanced the cursor, else 0.
	Confidence float64
	// IsBacktrack marks positions produced by a backtrack or forward jump
	// correction. Both require the display to resync.
	IsBacktrack bool
}

// state is the engine's committed tracking state. Keeping it in one struct
// makes the correction invariants auditable: every mutation goes through
// Update, Validate, Reset or JumpTo.
type state struct {
	optimisticPosition   int
	highWaterMark        int
	lastTranscript       string
	lastMatchedSpoken    string
	pendingWords         []string
	wordsSinceValidation int
	skipDisabledCount    int
	validationArmed      bool
}

// Engine tracks the speaker's position in a parsed script.
//
// All methods are safe for concurrent use, though the intended deployment
// gives a single worker exclusive ownership (see the threaded package).
type Engine struct {
	windowSize         int
	matchThreshold     float64
	backtrackThreshold int
	maxJumpDistance    int
	maxSkipDistance    int

	parsed     *script.ParsedScript
	words      []string
	lines      []Line
	wordToLine []int

	mu        sync.Mutex
	st        state
	expansion *ExpansionMatcher

	log *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWindowSize sets the number of words per validation window.
func WithWindowSize(n int) Option {
	return func(e *Engine) { e.windowSize = n }
}

// WithMatchThreshold sets the minimum fuzzy score for window validation.
func WithMatchThreshold(score float64) Option {
	return func(e *Engine) { e.matchThreshold = score }
}

// WithBacktrackThreshold sets how many words behind the high-water mark a
// validated position must fall to count as a backtrack.
func WithBacktrackThreshold(words int) Option {
	return func(e *Engine) { e.backtrackThreshold = words }
}

// WithMaxJumpDistance bounds how far a validation correction may move the
// cursor in one step.
func WithMaxJumpDistance(words int) Option {
	return func(e *Engine) { e.maxJumpDistance = words }
}

// WithMaxSkipDistance sets how many script words optimistic matching may
// pass over to find a match.
func WithMaxSkipDistance(words int) Option {
	return func(e *Engine) { e.maxSkipDistance = words }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New parses the script text as Markdown and returns an engine positioned
// at the start.
func New(scriptText string, opts ...Option) *Engine {
	e := &Engine{
		windowSize:         8,
		matchThreshold:     65,
		backtrackThreshold: 3,
		maxJumpDistance:    50,
		maxSkipDistance:    2,
		log:                slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.parsed = script.ParseMarkdown(scriptText)
	e.words = e.parsed.SpeakableTexts()
	e.lines, e.wordToLine = buildLines(scriptText, len(e.words))
	e.expansion = NewExpansionMatcher(e.parsed)

	return e
}

// Script returns the parsed script the engine tracks against.
func (e *Engine) Script() *script.ParsedScript { return e.parsed }

// TotalWords returns the number of speakable words.
func (e *Engine) TotalWords() int { return len(e.words) }

// Update advances the tracker with a new transcript snapshot. Partial
// snapshots only report the current position; final snapshots are diffed
// against the previous transcript and the new words drive the optimistic
// matcher. When nothing advances despite several new words, a validation
// pass runs immediately to catch a silent backtrack or jump.
func (e *Engine) Update(transcript string, isPartial bool) Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	if isPartial {
		return e.positionLocked()
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return e.positionLocked()
	}

	fresh := e.extractNewWords(transcript)
	if len(fresh) > 0 {
		e.st.lastTranscript = transcript
	}

	// Words left unprocessed by an earlier miss streak go first, so a
	// briefly garbled snapshot cannot swallow the script words behind it.
	newWords := fresh
	if len(e.st.pendingWords) > 0 {
		newWords = append(e.st.pendingWords, fresh...)
		e.st.pendingWords = nil
	}
	if len(newWords) == 0 {
		return e.positionLocked()
	}

	e.log.Debug("processing new words",
		"count", len(newWords),
		"position", e.st.optimisticPosition)

	advanced := 0
	misses := 0
	for i := 0; i < len(newWords); i++ {
		norm := fuzzy.Normalize(newWords[i])
		if norm == "" {
			continue
		}
		next := ""
		if i+1 < len(newWords) {
			next = fuzzy.Normalize(newWords[i+1])
		}

		adv, joined, matched := e.matchWord(norm, next)
		if matched {
			if joined {
				i++
			}
			advanced += adv
			misses = 0
			if e.st.skipDisabledCount > 0 {
				e.st.skipDisabledCount--
			}
			continue
		}

		e.st.lastMatchedSpoken = ""
		misses++
		if misses >= maxConsecutiveMisses {
			e.retainPending(newWords[i+1:])
			break
		}
	}

	e.st.wordsSinceValidation += len(fresh)
	if e.st.wordsSinceValidation >= validationArmCount {
		e.st.validationArmed = true
	}

	if advanced == 0 && len(newWords) >= 3 {
		pos, jumped := e.validateLocked(transcript)
		if jumped {
			p := e.positionAtLocked(pos)
			p.IsBacktrack = true
			return p
		}
	}

	p := e.positionLocked()
	if advanced > 0 {
		p.Confidence = 100
	}
	return p
}

// matchWord attempts one spoken word at the optimistic cursor. next is the
// following spoken word, used to rejoin a compound script word the
// recognizer split in two. It returns how far the cursor advanced, whether
// next was consumed by a join, and whether the word was accounted for
// (matched, filler, stutter, or consumed by an in-progress expansion).
func (e *Engine) matchWord(norm, next string) (advance int, joined, matched bool) {
	pos := e.st.optimisticPosition
	if pos >= len(e.words) {
		return 0, false, false
	}

	// Continue an in-progress expansion first.
	if e.expansion.IsActive() {
		if e.expansion.FilterByWord(norm) {
			if e.expansion.IsComplete() {
				e.expansion.Clear()
				e.advanceTo(pos + 1)
				e.st.lastMatchedSpoken = norm
				return 1, false, true
			}
			e.st.lastMatchedSpoken = norm
			return 0, false, true
		}
		// Expansion ended early; fall through and try this word fresh.
		e.expansion.Clear()
	}

	// Filler words are skipped unless they coincide with the script.
	if fillerWords[norm] && !e.wordCouldMatchAt(norm, pos) {
		return 0, false, true
	}

	// Stutter: the same word spoken twice in a row.
	if e.st.lastMatchedSpoken != "" && norm == e.st.lastMatchedSpoken {
		return 0, false, true
	}

	maxSkip := e.maxSkipDistance
	if e.st.skipDisabledCount > 0 {
		maxSkip = 0
	}

	for k := 0; k <= maxSkip && pos+k < len(e.words); k++ {
		sw := e.parsed.SpeakableWords[pos+k]

		if sw.IsExpansion {
			candidate := NewExpansionMatcher(e.parsed)
			candidate.Start(pos + k)
			if !candidate.FilterByWord(norm) {
				continue
			}
			if candidate.IsComplete() {
				e.advanceTo(pos + k + 1)
				e.st.lastMatchedSpoken = norm
				return k + 1, false, true
			}
			// Entered a multi-word expansion: move the cursor onto the
			// token and keep filtering on subsequent words.
			e.expansion.Restore(candidate)
			e.advanceTo(pos + k)
			e.st.lastMatchedSpoken = norm
			return k, false, true
		}

		// A compound script word the recognizer split ("framerate" heard
		// as "frame rate"): rejoin when the script word is at least 1.5x
		// the spoken word and equals the two spoken words concatenated.
		swNorm := fuzzy.Normalize(sw.Text)
		if next != "" && 2*len(swNorm) >= 3*len(norm) && norm+next == swNorm {
			e.advanceTo(pos + k + 1)
			e.st.lastMatchedSpoken = ""
			return k + 1, true, true
		}

		if fuzzy.WordMatch(norm, sw.Text, wordMatchThreshold) {
			e.advanceTo(pos + k + 1)
			e.st.lastMatchedSpoken = norm
			return k + 1, false, true
		}
	}

	return 0, false, false
}

// retainPending keeps the spoken words a miss streak left unprocessed so
// the next update tries them again, trimming the oldest past the cap.
func (e *Engine) retainPending(words []string) {
	if len(words) == 0 {
		return
	}
	if len(words) > maxPendingWords {
		words = words[len(words)-maxPendingWords:]
	}
	e.st.pendingWords = append([]string(nil), words...)
}

// wordCouldMatchAt reports whether the spoken word fuzzy-matches any word
// that could start a match at the given position.
func (e *Engine) wordCouldMatchAt(norm string, pos int) bool {
	for _, candidate := range e.expansion.FirstWords(pos) {
		if fuzzy.WordMatch(norm, candidate, wordMatchThreshold) {
			return true
		}
	}
	return false
}

// advanceTo moves the optimistic cursor and raises the high-water mark.
func (e *Engine) advanceTo(pos int) {
	e.st.optimisticPosition = pos
	if pos > e.st.highWaterMark {
		e.st.highWaterMark = pos
	}
}

// extractNewWords returns only the words the transcript added since the
// previous one, using a longest-matching-prefix diff. A transcript with no
// shared prefix is a fresh utterance and is returned whole.
func (e *Engine) extractNewWords(transcript string) []string {
	currentWords := strings.Fields(transcript)
	lastWords := strings.Fields(e.st.lastTranscript)

	if len(lastWords) == 0 {
		return currentWords
	}

	matchLen := 0
	for i := 0; i < len(currentWords) && i < len(lastWords); i++ {
		if fuzzy.Normalize(currentWords[i]) != fuzzy.Normalize(lastWords[i]) {
			break
		}
		matchLen = i + 1
	}

	if matchLen > 0 {
		return currentWords[matchLen:]
	}
	return currentWords
}

// ValidationArmed reports whether enough words have been processed since
// the last validation to warrant one.
func (e *Engine) ValidationArmed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.validationArmed
}

// Reset returns the tracker to the beginning of the script.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st = state{}
	e.expansion.Clear()
}

// JumpTo moves the tracker to an explicit position, clamped to the script
// bounds. Transcript memory and expansion state are discarded.
func (e *Engine) JumpTo(wordIndex int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.words) == 0 {
		wordIndex = 0
	} else {
		wordIndex = max(0, min(wordIndex, len(e.words)-1))
	}

	e.st = state{}
	e.expansion.Clear()
	e.st.optimisticPosition = wordIndex
	e.st.highWaterMark = wordIndex
}

// DisplayLines returns the script lines surrounding the current position:
// the slice of lines, the current line's offset within that slice, and the
// current word's offset within its line.
func (e *Engine) DisplayLines(pastLines, futureLines int) ([]Line, int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	currentLine := e.lineIndexLocked(e.st.optimisticPosition)

	startLine := max(0, currentLine-pastLines)
	endLine := min(len(e.lines), currentLine+futureLines+1)

	display := e.lines[startLine:endLine]
	currentInDisplay := currentLine - startLine

	wordOffset := 0
	if currentLine < len(e.lines) {
		wordOffset = e.st.optimisticPosition - e.lines[currentLine].WordStartIndex
	}

	return display, currentInDisplay, wordOffset
}

// Progress returns how far through the script the speaker is, 0 to 1,
// measured in raw tokens so silent punctuation counts toward completion.
func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	totalRaw := e.parsed.TotalRawTokens()
	if totalRaw == 0 {
		return 0
	}
	return float64(e.parsed.RawIndexFor(e.st.optimisticPosition)) / float64(totalRaw)
}

// Position returns the current position without updating.
func (e *Engine) Position() Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *Engine) positionLocked() Position {
	return e.positionAtLocked(e.st.optimisticPosition)
}

func (e *Engine) positionAtLocked(speakableIdx int) Position {
	return Position{
		WordIndex:      e.parsed.RawIndexFor(speakableIdx),
		LineIndex:      e.lineIndexLocked(speakableIdx),
		SpeakableIndex: speakableIdx,
	}
}

func (e *Engine) lineIndexLocked(wordIndex int) int {
	if wordIndex >= len(e.wordToLine) {
		if len(e.lines) == 0 {
			return 0
		}
		return len(e.lines) - 1
	}
	return e.wordToLine[wordIndex]
}
