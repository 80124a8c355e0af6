// Package script parses teleprompter scripts into two aligned
// representations: raw tokens as they appear in the rendered output, and
// speakable words as a presenter would say them. Punctuation and numbers
// expand into spoken alternatives ("&" as "and", "100" as "one hundred"),
// and index maps keep the tracker and the display in sync.
package script

// RawToken is a token as it appears in the rendered script.
type RawToken struct {
	Text  string
	Index int
}

// SpeakableWord is a word as it would be spoken.
//
// Expandable tokens (numbers, punctuation) occupy a single position with
// every plausible spoken form attached. The tracker follows whichever
// alternative the speaker actually produces.
type SpeakableWord struct {
	// Text is the normalized spoken form. For expandable tokens it is the
	// first word of the primary expansion.
	Text string

	// RawTokenIndex maps back to the RawToken that produced this word.
	RawTokenIndex int

	// IsExpansion marks number and punctuation tokens.
	IsExpansion bool

	// Expansions holds every spoken alternative for expandable tokens,
	// primary form first. Nil for plain words.
	Expansions [][]string
}

// ParsedScript is the complete parsed representation of a script.
type ParsedScript struct {
	RawText        string
	RawTokens      []RawToken
	SpeakableWords []SpeakableWord

	// RawToSpeakable maps a raw token index to the speakable word indices
	// it produced. Silent punctuation maps to an empty slice.
	RawToSpeakable map[int][]int

	// SpeakableToRaw maps a speakable word index back to its raw token.
	SpeakableToRaw map[int]int
}

// TotalRawTokens returns the number of raw tokens.
func (p *ParsedScript) TotalRawTokens() int { return len(p.RawTokens) }

// TotalSpeakableWords returns the number of speakable words.
func (p *ParsedScript) TotalSpeakableWords() int { return len(p.SpeakableWords) }

// RawTokenFor returns the raw token that produced the given speakable word,
// or nil when the index is out of range.
func (p *ParsedScript) RawTokenFor(speakableIndex int) *RawToken {
	if speakableIndex < 0 || speakableIndex >= len(p.SpeakableWords) {
		return nil
	}
	rawIdx, ok := p.SpeakableToRaw[speakableIndex]
	if !ok || rawIdx >= len(p.RawTokens) {
		return nil
	}
	return &p.RawTokens[rawIdx]
}

// SpeakableTexts returns the spoken text of every speakable word, in order.
func (p *ParsedScript) SpeakableTexts() []string {
	texts := make([]string, len(p.SpeakableWords))
	for i, sw := range p.SpeakableWords {
		texts[i] = sw.Text
	}
	return texts
}

// RawIndexFor converts a speakable word index to a raw token index for
// display highlighting. An index past the last speakable word returns the
// raw token count, a past-the-end marker meaning the script is complete.
func (p *ParsedScript) RawIndexFor(speakableIndex int) int {
	if speakableIndex < 0 {
		return 0
	}
	if speakableIndex >= len(p.SpeakableWords) {
		return len(p.RawTokens)
	}
	return p.SpeakableToRaw[speakableIndex]
}
