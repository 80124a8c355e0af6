package track

import (
	"strings"

	"github.com/EdNutting/autocue/internal/fuzzy"
)

// Line is a display line of the script with its normalized words.
type Line struct {
	Text           string
	Words          []string
	WordStartIndex int
}

// buildLines splits the raw script text into display lines and maps each
// speakable word index to the line it falls on. The mapping assigns
// speakable indices in order as line words are counted, which keeps the
// display roughly aligned even when expansions change word counts.
func buildLines(text string, totalSpeakable int) ([]Line, []int) {
	var lines []Line
	var wordToLine []int

	speakableIdx := 0
	for _, lineText := range strings.Split(text, "\n") {
		var lineWords []string
		for _, w := range strings.Fields(lineText) {
			if norm := fuzzy.Normalize(w); norm != "" {
				lineWords = append(lineWords, norm)
			}
		}

		startIdx := speakableIdx
		for range lineWords {
			if speakableIdx < totalSpeakable {
				wordToLine = append(wordToLine, len(lines))
				speakableIdx++
			}
		}

		lines = append(lines, Line{
			Text:           lineText,
			Words:          lineWords,
			WordStartIndex: startIdx,
		})
	}

	return lines, wordToLine
}
