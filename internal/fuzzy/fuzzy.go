// Package fuzzy provides the string-similarity primitives used by the
// script tracker: a normalised edit-distance ratio for single words and a
// token-set ratio for comparing a transcript against a window of script
// text.
//
// All scores are in the range [0, 100]. Word comparisons should go through
// [WordMatch] so that exact equality short-circuits the edit-distance
// computation, which matters on the per-word hot path.
package fuzzy

import (
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// nonWord matches every character that is neither alphanumeric nor
// whitespace. Used by [Normalize].
var nonWord = regexp.MustCompile(`[^\w\s]`)

// Normalize lowercases a word and strips all punctuation so that spoken
// words and script words compare on letters and digits alone
// ("Don't" → "dont").
func Normalize(word string) string {
	return strings.TrimSpace(nonWord.ReplaceAllString(strings.ToLower(word), ""))
}

// Ratio returns the similarity of a and b as a normalised Levenshtein
// score in [0, 100]. Identical strings score 100; strings with nothing in
// common score 0. Empty inputs score 0 unless both are empty.
func Ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 100
	}
	dist := matchr.Levenshtein(a, b)
	if dist >= maxLen {
		return 0
	}
	return 100 * (1 - float64(dist)/float64(maxLen))
}

// WordMatch reports whether a spoken word matches a script word at the
// given threshold. Both sides are normalised first; an empty side never
// matches.
func WordMatch(spoken, script string, threshold float64) bool {
	sp := Normalize(spoken)
	sc := Normalize(script)
	if sp == "" || sc == "" {
		return false
	}
	if sp == sc {
		return true
	}
	return Ratio(sp, sc) >= threshold
}

// TokenSetRatio compares a and b as unordered word sets, tolerating
// repeated and out-of-order words. It splits both strings into unique
// sorted tokens, forms the shared intersection and the two differences,
// and returns the best of the three pairwise [Ratio] scores:
//
//	intersection            vs intersection + diff(a)
//	intersection            vs intersection + diff(b)
//	intersection + diff(a)  vs intersection + diff(b)
//
// A transcript that is wholly contained in the window therefore scores
// 100 even when the window carries extra words.
func TokenSetRatio(a, b string) float64 {
	ta := uniqueSorted(strings.Fields(a))
	tb := uniqueSorted(strings.Fields(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inB := make(map[string]struct{}, len(tb))
	for _, t := range tb {
		inB[t] = struct{}{}
	}
	inA := make(map[string]struct{}, len(ta))
	for _, t := range ta {
		inA[t] = struct{}{}
	}

	var both, onlyA, onlyB []string
	for _, t := range ta {
		if _, ok := inB[t]; ok {
			both = append(both, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range tb {
		if _, ok := inA[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}

	sect := strings.Join(both, " ")
	combA := joinNonEmpty(sect, strings.Join(onlyA, " "))
	combB := joinNonEmpty(sect, strings.Join(onlyB, " "))

	best := Ratio(combA, combB)
	if sect != "" {
		if s := Ratio(sect, combA); s > best {
			best = s
		}
		if s := Ratio(sect, combB); s > best {
			best = s
		}
	}
	return best
}

func uniqueSorted(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
