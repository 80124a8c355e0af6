package track

import (
	"slices"

	"github.com/EdNutting/autocue/internal/fuzzy"
	"github.com/EdNutting/autocue/internal/script"
)

// expansionFuzzThreshold is the similarity score a spoken word needs to
// count as matching an expansion word.
const expansionFuzzThreshold = 75

// ExpansionMatcher follows a speaker through a multi-word expandable token.
//
// Expandable tokens (numbers, punctuation) can be spoken several ways, so
// the matcher keeps every alternative alive and filters them word by word
// as the speaker commits to one. For "100": hearing "one" keeps "one
// hundred" and "one zero zero", hearing "hundred" completes the former and
// the position advances past the token.
type ExpansionMatcher struct {
	parsed *script.ParsedScript

	activeExpansions [][]string
	matchPosition    int
}

// NewExpansionMatcher creates a matcher over the given parsed script.
func NewExpansionMatcher(parsed *script.ParsedScript) *ExpansionMatcher {
	return &ExpansionMatcher{parsed: parsed}
}

// FirstWords returns every word that could start a match at the given
// speakable position. Expandable tokens contribute the first word of each
// alternative; regular words contribute themselves.
func (m *ExpansionMatcher) FirstWords(speakableIdx int) []string {
	if speakableIdx < 0 || speakableIdx >= len(m.parsed.SpeakableWords) {
		return nil
	}

	sw := m.parsed.SpeakableWords[speakableIdx]
	if sw.IsExpansion && len(sw.Expansions) > 0 {
		var firstWords []string
		for _, exp := range sw.Expansions {
			if len(exp) == 0 {
				continue
			}
			if word := exp[0]; !slices.Contains(firstWords, word) {
				firstWords = append(firstWords, word)
			}
		}
		return firstWords
	}

	return []string{sw.Text}
}

// Start initializes matching state at a speakable position. It reports
// whether the position holds an expandable token.
func (m *ExpansionMatcher) Start(speakableIdx int) bool {
	m.activeExpansions = nil
	m.matchPosition = 0

	if speakableIdx < 0 || speakableIdx >= len(m.parsed.SpeakableWords) {
		return false
	}

	sw := m.parsed.SpeakableWords[speakableIdx]
	if !sw.IsExpansion || len(sw.Expansions) == 0 {
		return false
	}

	m.activeExpansions = make([][]string, len(sw.Expansions))
	for i, exp := range sw.Expansions {
		m.activeExpansions[i] = slices.Clone(exp)
	}
	return true
}

// FilterByWord narrows the active expansions to those matching the spoken
// word at the current position. It reports whether any alternative
// survived; on success the match position advances.
func (m *ExpansionMatcher) FilterByWord(spokenWord string) bool {
	if len(m.activeExpansions) == 0 {
		return false
	}

	spokenNorm := fuzzy.Normalize(spokenWord)
	if spokenNorm == "" {
		return false
	}

	var remaining [][]string
	for _, exp := range m.activeExpansions {
		if m.matchPosition >= len(exp) {
			continue
		}
		expWord := exp[m.matchPosition]
		if spokenNorm == expWord || fuzzy.Ratio(spokenNorm, expWord) >= expansionFuzzThreshold {
			remaining = append(remaining, exp)
		}
	}

	if len(remaining) == 0 {
		return false
	}
	m.activeExpansions = remaining
	m.matchPosition++
	return true
}

// IsComplete reports whether any active expansion has been fully matched.
func (m *ExpansionMatcher) IsComplete() bool {
	for _, exp := range m.activeExpansions {
		if m.matchPosition >= len(exp) {
			return true
		}
	}
	return false
}

// Clear drops all expansion matching state.
func (m *ExpansionMatcher) Clear() {
	m.activeExpansions = nil
	m.matchPosition = 0
}

// Clone returns an independent copy, used for lookahead that may need to
// roll back.
func (m *ExpansionMatcher) Clone() *ExpansionMatcher {
	clone := &ExpansionMatcher{
		parsed:        m.parsed,
		matchPosition: m.matchPosition,
	}
	if m.activeExpansions != nil {
		clone.activeExpansions = make([][]string, len(m.activeExpansions))
		for i, exp := range m.activeExpansions {
			clone.activeExpansions[i] = slices.Clone(exp)
		}
	}
	return clone
}

// IsActive reports whether an expansion is currently being matched.
func (m *ExpansionMatcher) IsActive() bool { return len(m.activeExpansions) > 0 }

// RemainingCount returns the number of still-valid alternatives.
func (m *ExpansionMatcher) RemainingCount() int { return len(m.activeExpansions) }

// MatchPosition returns the word offset within the expansion being matched.
func (m *ExpansionMatcher) MatchPosition() int { return m.matchPosition }

// Restore replaces this matcher's state with a previously cloned one.
func (m *ExpansionMatcher) Restore(other *ExpansionMatcher) {
	m.activeExpansions = other.activeExpansions
	m.matchPosition = other.matchPosition
}
