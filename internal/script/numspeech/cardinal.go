package numspeech

import "strings"

var onesWords = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight",
	"nine", "ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen",
	"sixteen", "seventeen", "eighteen", "nineteen",
}

var tensWords = []string{
	"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy",
	"eighty", "ninety",
}

var scales = []struct {
	value int64
	name  string
}{
	{1_000_000_000_000_000_000, "quintillion"},
	{1_000_000_000_000_000, "quadrillion"},
	{1_000_000_000_000, "trillion"},
	{1_000_000_000, "billion"},
	{1_000_000, "million"},
	{1_000, "thousand"},
}

// Irregular ordinal forms that cannot be derived by suffixing.
var irregularOrdinals = map[string]string{
	"one":    "first",
	"two":    "second",
	"three":  "third",
	"five":   "fifth",
	"eight":  "eighth",
	"nine":   "ninth",
	"twelve": "twelfth",
}

// Cardinal converts an integer to its British English spoken form, one word
// per element. The joining "and" appears between hundreds and the final
// tens/units, matching how people read numbers aloud ("one hundred and
// fifty", "one thousand and one").
func Cardinal(n int64) []string {
	if n == 0 {
		return []string{"zero"}
	}
	if n < 0 {
		return append([]string{"minus"}, Cardinal(-n)...)
	}

	var words []string
	rem := n
	for _, s := range scales {
		if rem >= s.value {
			words = append(words, belowThousand(rem/s.value)...)
			words = append(words, s.name)
			rem %= s.value
		}
	}
	if rem > 0 {
		if len(words) > 0 && rem < 100 {
			words = append(words, "and")
		}
		words = append(words, belowThousand(rem)...)
	}
	return words
}

func belowThousand(n int64) []string {
	var words []string
	if n >= 100 {
		words = append(words, onesWords[n/100], "hundred")
		n %= 100
		if n > 0 {
			words = append(words, "and")
		}
	}
	switch {
	case n >= 20:
		words = append(words, tensWords[n/10])
		if n%10 > 0 {
			words = append(words, onesWords[n%10])
		}
	case n > 0:
		words = append(words, onesWords[n])
	}
	return words
}

// Ordinal converts an integer to its spoken ordinal form ("first",
// "twenty third", "one hundredth").
func Ordinal(n int64) []string {
	words := Cardinal(n)
	last := words[len(words)-1]
	switch {
	case irregularOrdinals[last] != "":
		last = irregularOrdinals[last]
	case strings.HasSuffix(last, "y"):
		last = last[:len(last)-1] + "ieth"
	default:
		last += "th"
	}
	words[len(words)-1] = last
	return words
}
