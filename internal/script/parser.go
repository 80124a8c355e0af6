package script

import (
	"regexp"
	"slices"
	"strings"

	"github.com/EdNutting/autocue/internal/fuzzy"
	"github.com/EdNutting/autocue/internal/script/numspeech"
)

// punctuationExpansions maps spoken punctuation to its possible vocal forms.
// Each form is a word sequence and the first entry is the primary expansion
// used for position tracking. Markdown formatting characters like # and _
// are deliberately absent, they never reach the rendered output.
var punctuationExpansions = map[string][][]string{
	"&":  {{"and"}, {"ampersand"}},
	"<":  {{"less", "than"}},
	">":  {{"greater", "than"}},
	"<=": {{"less", "than", "or", "equal"}},
	">=": {{"greater", "than", "or", "equal"}},
	"/":  {{"slash"}, {"or"}, {"forward", "slash"}},
	"\\": {{"backslash"}, {"back", "slash"}},
	"~":  {{"approximately"}, {"tilde"}, {"about"}},
	"@":  {{"at"}},
	"+":  {{"plus"}},
	"-":  {{"minus"}, {"dash"}, {"hyphen"}},
	"=":  {{"equals"}, {"equal"}, {"is"}},
	"%":  {{"percent"}},
	"^":  {{"caret"}, {"to", "the", "power"}, {"to", "the", "power", "of"}, {"xor"}, {"ex", "or"}, {"exor"}, {"exo"}, {"x", "or"}},
	"|":  {{"pipe"}, {"or"}},
	"*":  {{"times"}, {"multiply"}, {"multiplied"}},
}

// silentPunctuation never gets vocalized and produces no speakable word.
var silentPunctuation = map[rune]bool{
	',': true, '.': true, '!': true, '?': true, ';': true, ':': true,
	'"': true, '\'': true, '(': true, ')': true, '[': true, ']': true,
	'{': true, '}': true,
	'—': true, '–': true, '…': true,
	'“': true, '”': true, '‘': true, '’': true,
	'«': true, '»': true,
}

const (
	leadingPunctuation  = `"'` + "“‘" + `([{<`
	trailingPunctuation = `"'` + "”’" + `.,;:!?)]}>`
)

// percentNumberPat covers "100%" style tokens so the preprocessor leaves
// them whole for number detection.
var percentNumberPat = regexp.MustCompile(`^\d+(\.\d+)?%$`)

// StripSurroundingPunctuation removes leading and trailing punctuation while
// preserving internal punctuation, so "1100," becomes "1100" but "1,000"
// and "3.14" stay intact.
func StripSurroundingPunctuation(token string) string {
	for token != "" && strings.ContainsRune(leadingPunctuation, []rune(token)[0]) {
		runes := []rune(token)
		token = string(runes[1:])
	}
	for token != "" {
		runes := []rune(token)
		if !strings.ContainsRune(trailingPunctuation, runes[len(runes)-1]) {
			break
		}
		token = string(runes[:len(runes)-1])
	}
	return token
}

// PrimaryExpansion returns the primary spoken form of a punctuation token,
// or nil when the token needs no expansion.
func PrimaryExpansion(token string) []string {
	if exps, ok := punctuationExpansions[token]; ok {
		return exps[0]
	}
	stripped := strings.TrimSpace(token)
	if len([]rune(stripped)) == 1 {
		if exps, ok := punctuationExpansions[stripped]; ok {
			return exps[0]
		}
	}
	return nil
}

// AllExpansions returns every spoken alternative for a punctuation or
// number token, or nil when the token has none.
func AllExpansions(token string) [][]string {
	if exps, ok := punctuationExpansions[token]; ok {
		return exps
	}
	stripped := strings.TrimSpace(token)
	if len([]rune(stripped)) == 1 {
		if exps, ok := punctuationExpansions[stripped]; ok {
			return exps
		}
	}
	return numspeech.Expansions(token)
}

// ExpansionFirstWords returns the first word of each possible expansion. A
// spoken word matching any of these may start the token's expansion.
func ExpansionFirstWords(token string) []string {
	expansions := AllExpansions(token)
	if expansions == nil {
		return nil
	}
	first := make([]string, 0, len(expansions))
	for _, exp := range expansions {
		first = append(first, exp[0])
	}
	return first
}

// IsSilentPunctuation reports whether every character of the token is
// punctuation that gets dropped rather than spoken.
func IsSilentPunctuation(token string) bool {
	stripped := strings.TrimSpace(token)
	for _, r := range stripped {
		if !silentPunctuation[r] {
			return false
		}
	}
	return true
}

// PreprocessToken splits embedded spoken operators out of a token, so
// "2^3" becomes ["2", "^", "3"] and "a+b=c" becomes ["a", "+", "b", "=",
// "c"]. Tokens that match a number pattern stay whole ("3.14", "-100",
// "100GB/s", "100%"), and a minus directly before digits stays attached as
// a sign ("2^-3" keeps "-3" together).
func PreprocessToken(token string) []string {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if _, ok := punctuationExpansions[token]; ok {
		return []string{token}
	}
	if numspeech.IsNumberToken(token) || percentNumberPat.MatchString(token) {
		return []string{token}
	}

	var parts []string
	var segment strings.Builder
	flush := func() {
		if segment.Len() > 0 {
			parts = append(parts, segment.String())
			segment.Reset()
		}
	}

	runes := []rune(token)
	for i := 0; i < len(runes); i++ {
		// Multi-character operators before their single-character prefixes.
		if i+1 < len(runes) {
			pair := string(runes[i : i+2])
			if _, ok := punctuationExpansions[pair]; ok {
				flush()
				parts = append(parts, pair)
				i++
				continue
			}
		}

		ch := string(runes[i])
		if _, ok := punctuationExpansions[ch]; ok {
			// A minus at a segment boundary followed by a digit is a sign.
			if ch == "-" && segment.Len() == 0 && i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9' {
				segment.WriteRune(runes[i])
				continue
			}
			flush()
			parts = append(parts, ch)
			continue
		}

		segment.WriteRune(runes[i])
	}
	flush()

	return parts
}

// Parse tokenizes plain script text on whitespace and builds the dual
// raw/speakable representation.
func Parse(text string) *ParsedScript {
	var tokens []string
	for _, line := range strings.Split(text, "\n") {
		tokens = append(tokens, strings.Fields(line)...)
	}
	return parseTokens(text, tokens)
}

func parseTokens(rawText string, tokens []string) *ParsedScript {
	parsed := &ParsedScript{
		RawText:        rawText,
		RawToSpeakable: make(map[int][]int),
		SpeakableToRaw: make(map[int]int),
	}

	// Split embedded operators out before classification.
	var expanded []string
	for _, token := range tokens {
		expanded = append(expanded, PreprocessToken(token)...)
	}

	rawIndex := 0
	speakableIndex := 0

	addWord := func(sw SpeakableWord) {
		sw.RawTokenIndex = rawIndex
		parsed.SpeakableWords = append(parsed.SpeakableWords, sw)
		parsed.RawToSpeakable[rawIndex] = append(parsed.RawToSpeakable[rawIndex], speakableIndex)
		parsed.SpeakableToRaw[speakableIndex] = rawIndex
		speakableIndex++
	}

	for _, token := range expanded {
		if strings.TrimSpace(token) == "" {
			continue
		}

		parsed.RawTokens = append(parsed.RawTokens, RawToken{Text: token, Index: rawIndex})
		parsed.RawToSpeakable[rawIndex] = []int{}

		primary := PrimaryExpansion(token)
		stripped := StripSurroundingPunctuation(token)

		switch {
		case primary != nil:
			addWord(SpeakableWord{
				Text:        strings.ToLower(primary[0]),
				IsExpansion: true,
				Expansions:  AllExpansions(token),
			})
		case percentNumberPat.MatchString(stripped):
			numExps := numspeech.Expansions(strings.TrimSuffix(stripped, "%"))
			expansions := make([][]string, 0, len(numExps))
			for _, exp := range numExps {
				expansions = append(expansions, append(slices.Clone(exp), "percent"))
			}
			addWord(SpeakableWord{
				Text:        strings.ToLower(expansions[0][0]),
				IsExpansion: true,
				Expansions:  expansions,
			})
		case numspeech.IsNumberToken(stripped):
			expansions := numspeech.Expansions(stripped)
			if expansions != nil {
				addWord(SpeakableWord{
					Text:        strings.ToLower(expansions[0][0]),
					IsExpansion: true,
					Expansions:  expansions,
				})
			} else if normalized := fuzzy.Normalize(token); normalized != "" {
				addWord(SpeakableWord{Text: normalized})
			}
		case IsSilentPunctuation(token):
			// Raw token with no speakable word.
		default:
			if normalized := fuzzy.Normalize(token); normalized != "" {
				addWord(SpeakableWord{Text: normalized})
			}
		}

		rawIndex++
	}

	return parsed
}
