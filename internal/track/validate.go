package track

import (
	"strings"

	"github.com/EdNutting/autocue/internal/fuzzy"
)

// Validate re-anchors the cursor with a bounded sliding-window fuzzy
// search over the transcript. It returns the (possibly corrected)
// speakable position and whether a backtrack or forward jump was applied.
// Both correction directions report true: either way the display must
// resync.
func (e *Engine) Validate(transcript string) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateLocked(transcript)
}

func (e *Engine) validateLocked(transcript string) (int, bool) {
	e.st.validationArmed = false
	e.st.wordsSinceValidation = 0

	var transcriptWords []string
	for _, w := range strings.Fields(transcript) {
		if norm := fuzzy.Normalize(w); norm != "" {
			transcriptWords = append(transcriptWords, norm)
		}
	}
	// Too little context to place reliably.
	if len(transcriptWords) < 3 {
		return e.st.optimisticPosition, false
	}
	normalizedTranscript := strings.Join(transcriptWords, " ")

	bestIndex, bestScore := e.findBestMatch(normalizedTranscript, len(transcriptWords))

	if bestScore < e.matchThreshold {
		return e.st.optimisticPosition, false
	}

	diff := e.st.optimisticPosition - bestIndex

	// Small deviations are noise from common or repeated words.
	if abs(diff) <= 2 {
		return e.st.optimisticPosition, false
	}

	// The transcript agreeing with the script near the optimistic cursor
	// outranks a window match elsewhere.
	if e.transcriptMatchesPosition(transcriptWords, e.st.optimisticPosition) {
		return e.st.optimisticPosition, false
	}

	// A distant repeated phrase must not yank the cursor across the script.
	if abs(diff) > e.maxJumpDistance {
		return e.st.optimisticPosition, false
	}

	isBacktrack := bestIndex < e.st.highWaterMark-e.backtrackThreshold &&
		e.st.highWaterMark > 0 &&
		diff > 2

	isForwardJump := diff < -e.backtrackThreshold && bestIndex > e.st.highWaterMark

	if isBacktrack || isForwardJump {
		newPos := e.relocate(bestIndex, transcriptWords)
		kind := "backtrack"
		if isForwardJump {
			kind = "forward jump"
		}
		e.log.Info("position corrected",
			"kind", kind,
			"from", e.st.optimisticPosition,
			"to", newPos,
			"score", bestScore)

		e.st.optimisticPosition = newPos
		e.st.highWaterMark = newPos
		e.st.skipDisabledCount = skipCooldown
		e.st.lastTranscript = transcript
		e.st.pendingWords = nil
		e.expansion.Clear()
		return newPos, true
	}

	// Larger drift gets a silent correction without the jump signal.
	if abs(diff) > driftTolerance {
		newPos := bestIndex + len(transcriptWords)
		if len(e.words) > 0 {
			newPos = min(newPos, len(e.words)-1)
		} else {
			newPos = 0
		}

		e.log.Debug("drift corrected",
			"from", e.st.optimisticPosition,
			"to", newPos)

		e.st.optimisticPosition = newPos
		if newPos > e.st.highWaterMark {
			e.st.highWaterMark = newPos
		}
		e.st.lastTranscript = transcript
		e.st.pendingWords = nil
		e.expansion.Clear()
	}

	return e.st.optimisticPosition, false
}

// findBestMatch slides a window through a bounded range around the cursor
// and scores each candidate start against the transcript.
func (e *Engine) findBestMatch(normalizedTranscript string, transcriptWordCount int) (int, float64) {
	opt := e.st.optimisticPosition

	searchStart := max(0, opt-e.maxJumpDistance)
	searchEnd := min(len(e.words), max(e.st.highWaterMark, opt)+e.maxJumpDistance)

	// Always consider the start of the current line: restarting the
	// current sentence is the most common backtrack.
	if opt < len(e.wordToLine) {
		lineStart := e.lines[e.wordToLine[opt]].WordStartIndex
		searchStart = min(searchStart, lineStart)
	}

	bestIndex := opt
	bestScore := 0.0

	for i := searchStart; i < searchEnd; i++ {
		windowText := e.windowText(i)
		if windowText == "" {
			continue
		}

		score := fuzzy.TokenSetRatio(normalizedTranscript, windowText)

		// Short windows near the script end can match on a single common
		// word; discount them by coverage.
		windowWordCount := len(strings.Fields(windowText))
		need := min(e.windowSize, transcriptWordCount)
		if windowWordCount < need {
			score *= float64(windowWordCount) / float64(need)
		}

		// Slight preference for forward progress.
		if i >= opt {
			score += 2
		}

		if score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}

	return bestIndex, bestScore
}

// relocate finds where the transcript's first word aligns inside the
// matched window and places the cursor after the whole transcript.
func (e *Engine) relocate(bestIndex int, transcriptWords []string) int {
	offset := 0
	limit := min(e.windowSize, len(e.words)-bestIndex)
	for o := 0; o < limit; o++ {
		if fuzzy.WordMatch(transcriptWords[0], e.words[bestIndex+o], e.matchThreshold) {
			offset = o
			break
		}
	}

	newPos := bestIndex + offset + len(transcriptWords)
	if len(e.words) == 0 {
		return 0
	}
	return min(newPos, len(e.words)-1)
}

// transcriptMatchesPosition checks whether the last few transcript words
// fuzzy-match script words near the given position, indicating the
// optimistic cursor is already in the right area.
func (e *Engine) transcriptMatchesPosition(transcriptWords []string, pos int) bool {
	if len(transcriptWords) == 0 || pos >= len(e.words) {
		return false
	}

	start := max(0, pos-3)
	end := min(len(e.words), pos+3)
	nearby := e.words[start:end]
	if len(nearby) == 0 {
		return false
	}

	recent := transcriptWords
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	matches := 0
	for _, tw := range recent {
		for _, sw := range nearby {
			if fuzzy.WordMatch(tw, sw, e.matchThreshold) {
				matches++
				break
			}
		}
	}

	return float64(matches) >= float64(len(recent))*0.5
}

// windowText joins the next windowSize words starting at the given index.
func (e *Engine) windowText(start int) string {
	end := min(start+e.windowSize, len(e.words))
	if start >= end {
		return ""
	}
	return strings.Join(e.words[start:end], " ")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
