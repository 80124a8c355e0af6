// Package numspeech converts written number tokens into the alternative
// spoken forms a reader might plausibly produce. A single token such as
// "100GB/s" expands into several word sequences ("one hundred gigabytes per
// second", "a hundred g b per s", ...), so a matcher can follow whichever
// form the speaker actually uses.
//
// Supported formats: plain and comma-separated integers, decimals, ordinals
// (1st, 23rd), mixed alphanumerics (M3, 4K, 4.05GHz) and rate units
// (100GB/s). Unit abbreviations are only expanded when attached to a number.
package numspeech

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	integerPat      = regexp.MustCompile(`^-?\d+$`)
	commaIntegerPat = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+$`)
	decimalPat      = regexp.MustCompile(`^-?\d+\.\d+$`)
	ordinalPat      = regexp.MustCompile(`(?i)^(\d+)(st|nd|rd|th)$`)
	prefixMixedPat  = regexp.MustCompile(`^([A-Za-z]+)(\d+(?:\.\d+)?)$`)
	suffixMixedPat  = regexp.MustCompile(`^(\d+(?:\.\d+)?)([A-Za-z]+)$`)
	rateUnitPat     = regexp.MustCompile(`^(\d+(?:\.\d+)?)([A-Za-z]+)/([A-Za-z]+)$`)
)

// commonFractions maps decimal strings to fraction readings speakers often
// substitute for the digit form.
var commonFractions = map[string][][]string{
	"0.5":   {{"half"}, {"one", "half"}, {"a", "half"}},
	"0.50":  {{"half"}, {"one", "half"}, {"a", "half"}},
	"0.25":  {{"quarter"}, {"one", "quarter"}, {"a", "quarter"}},
	"0.33":  {{"third"}, {"one", "third"}, {"a", "third"}},
	"0.333": {{"third"}, {"one", "third"}, {"a", "third"}},
	"0.1":   {{"tenth"}, {"one", "tenth"}, {"a", "tenth"}},
	"0.10":  {{"tenth"}, {"one", "tenth"}, {"a", "tenth"}},
	"0.75":  {{"three", "quarters"}},
	"0.2":   {{"fifth"}, {"one", "fifth"}, {"a", "fifth"}},
	"0.20":  {{"fifth"}, {"one", "fifth"}, {"a", "fifth"}},
}

// unitExpansions maps unit abbreviations (lowercased) to their spoken forms.
// The letter-by-letter reading always comes first.
var unitExpansions = map[string][][]string{
	// Data storage
	"k":  {{"k"}, {"thousand"}},
	"kb": {{"k", "b"}, {"kilobytes"}, {"kilobyte"}},
	"mb": {{"m", "b"}, {"megabytes"}, {"megabyte"}, {"megs"}},
	"gb": {{"g", "b"}, {"gigabytes"}, {"gigabyte"}, {"gigs"}},
	"tb": {{"t", "b"}, {"terabytes"}, {"terabyte"}},
	"pb": {{"p", "b"}, {"petabytes"}, {"petabyte"}},

	// Frequency
	"hz":  {{"h", "z"}, {"hertz"}},
	"khz": {{"k", "h", "z"}, {"kilohertz"}},
	"mhz": {{"m", "h", "z"}, {"megahertz"}},
	"ghz": {{"g", "h", "z"}, {"gigahertz"}},

	// Distance
	"m":  {{"m"}, {"metres"}, {"meters"}},
	"km": {{"k", "m"}, {"kilometres"}, {"kilometers"}},
	"cm": {{"c", "m"}, {"centimetres"}, {"centimeters"}},
	"mm": {{"m", "m"}, {"millimetres"}, {"millimeters"}},
	"mi": {{"m", "i"}, {"miles"}, {"mile"}},
	"ft": {{"f", "t"}, {"feet"}, {"foot"}},
	"in": {{"i", "n"}, {"inches"}, {"inch"}},
	"yd": {{"y", "d"}, {"yards"}, {"yard"}},

	// Time
	"s":   {{"s"}, {"seconds"}, {"second"}},
	"ms":  {{"m", "s"}, {"milliseconds"}, {"millisecond"}},
	"ns":  {{"n", "s"}, {"nanoseconds"}, {"nanosecond"}},
	"us":  {{"u", "s"}, {"microseconds"}, {"microsecond"}},
	"min": {{"min"}, {"minutes"}, {"minute"}},
	"hr":  {{"h", "r"}, {"hours"}, {"hour"}},
	"hrs": {{"h", "r", "s"}, {"hours"}},

	// Speed
	"mph":  {{"m", "p", "h"}, {"miles", "per", "hour"}},
	"kph":  {{"k", "p", "h"}, {"kilometres", "per", "hour"}, {"kilometers", "per", "hour"}},
	"fps":  {{"f", "p", "s"}, {"frames", "per", "second"}},
	"bps":  {{"b", "p", "s"}, {"bits", "per", "second"}},
	"mbps": {{"m", "b", "p", "s"}, {"megabits", "per", "second"}},
	"gbps": {{"g", "b", "p", "s"}, {"gigabits", "per", "second"}},

	// Weight
	"kg":  {{"k", "g"}, {"kilograms"}, {"kilos"}},
	"g":   {{"g"}, {"grams"}, {"gram"}},
	"mg":  {{"m", "g"}, {"milligrams"}, {"milligram"}},
	"lb":  {{"l", "b"}, {"pounds"}, {"pound"}},
	"lbs": {{"l", "b", "s"}, {"pounds"}},
	"oz":  {{"o", "z"}, {"ounces"}, {"ounce"}},

	// Volume
	"l":  {{"l"}, {"litres"}, {"liters"}},
	"ml": {{"m", "l"}, {"millilitres"}, {"milliliters"}},

	// Temperature
	"c": {{"c"}, {"celsius"}, {"degrees", "celsius"}},
	"f": {{"f"}, {"fahrenheit"}, {"degrees", "fahrenheit"}},

	// Other
	"px": {{"p", "x"}, {"pixels"}, {"pixel"}},
	"db": {{"d", "b"}, {"decibels"}, {"decibel"}},
	"w":  {{"w"}, {"watts"}, {"watt"}},
	"kw": {{"k", "w"}, {"kilowatts"}, {"kilowatt"}},
	"mw": {{"m", "w"}, {"megawatts"}, {"megawatt"}},
	"v":  {{"v"}, {"volts"}, {"volt"}},
	"a":  {{"a"}, {"amps"}, {"amperes"}},
	"ma": {{"m", "a"}, {"milliamps"}, {"milliamperes"}},
}

var digitWords = map[byte]string{
	'0': "zero", '1': "one", '2': "two", '3': "three", '4': "four",
	'5': "five", '6': "six", '7': "seven", '8': "eight", '9': "nine",
}

// IsNumberToken reports whether the token matches any recognised number
// pattern. Regular words and bare punctuation return false.
func IsNumberToken(token string) bool {
	stripped := strings.TrimSpace(token)
	if stripped == "" {
		return false
	}
	for _, pat := range []*regexp.Regexp{
		integerPat, commaIntegerPat, decimalPat, ordinalPat,
		prefixMixedPat, suffixMixedPat, rateUnitPat,
	} {
		if pat.MatchString(stripped) {
			return true
		}
	}
	return false
}

// Expansions returns every plausible spoken word sequence for a number
// token, most natural first, or nil when the token is not a number.
func Expansions(token string) [][]string {
	stripped := strings.TrimSpace(token)
	if stripped == "" {
		return nil
	}

	// Ordinal first, its suffix makes it the most specific pattern.
	if m := ordinalPat.FindStringSubmatch(stripped); m != nil {
		return expandOrdinal(m[1])
	}
	if commaIntegerPat.MatchString(stripped) {
		return expandIntegerString(strings.ReplaceAll(stripped, ",", ""))
	}
	if decimalPat.MatchString(stripped) {
		return expandDecimal(stripped)
	}
	if integerPat.MatchString(stripped) {
		return expandIntegerString(stripped)
	}
	if prefixMixedPat.MatchString(stripped) || suffixMixedPat.MatchString(stripped) {
		return expandMixed(stripped)
	}
	if rateUnitPat.MatchString(stripped) {
		return expandRateUnit(stripped)
	}
	return nil
}

// FirstWords returns the unique first word of each expansion, or nil when
// the token is not a number. A spoken word matching any of these may be the
// start of the token's expansion.
func FirstWords(token string) []string {
	expansions := Expansions(token)
	if expansions == nil {
		return nil
	}
	var first []string
	for _, exp := range expansions {
		if len(exp) > 0 && !slices.Contains(first, exp[0]) {
			first = append(first, exp[0])
		}
	}
	return first
}

func digitByDigit(digits string) []string {
	words := make([]string, 0, len(digits))
	for i := 0; i < len(digits); i++ {
		words = append(words, digitWords[digits[i]])
	}
	return words
}

func digitsAsWords(digits string, useOh bool) []string {
	words := make([]string, 0, len(digits))
	for i := 0; i < len(digits); i++ {
		if digits[i] == '0' && useOh {
			words = append(words, "oh")
			continue
		}
		words = append(words, digitWords[digits[i]])
	}
	return words
}

func appendUnique(alts [][]string, alt []string) [][]string {
	for _, existing := range alts {
		if slices.Equal(existing, alt) {
			return alts
		}
	}
	return append(alts, alt)
}

// expandIntegerString expands a digit string, falling back to digit-by-digit
// reading when the value overflows int64.
func expandIntegerString(digits string) [][]string {
	num, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		words := digitByDigit(strings.TrimPrefix(digits, "-"))
		if strings.HasPrefix(digits, "-") {
			words = append([]string{"minus"}, words...)
		}
		return [][]string{words}
	}
	return expandInteger(num)
}

func expandInteger(num int64) [][]string {
	var alternatives [][]string
	absNum := num
	if absNum < 0 {
		absNum = -absNum
	}

	primary := Cardinal(absNum)
	if num < 0 {
		primary = append([]string{"minus"}, primary...)
	}
	alternatives = append(alternatives, primary)

	if num > 0 {
		// "a hundred" / "a thousand" in place of "one hundred".
		if (absNum >= 100 && absNum < 200) || (absNum >= 1000 && absNum < 2000) {
			if primary[0] == "one" {
				alt := append([]string{"a"}, primary[1:]...)
				alternatives = appendUnique(alternatives, alt)
			}
		}

		// "Eleven hundred" style readings for four-digit numbers.
		if absNum >= 1100 && absNum <= 9999 {
			hundreds := absNum / 100
			remainder := absNum % 100
			if remainder == 0 {
				alt := append(Cardinal(hundreds), "hundred")
				alternatives = appendUnique(alternatives, alt)
			} else if hundreds >= 11 {
				alt := append(Cardinal(hundreds), "hundred")
				alt = append(alt, Cardinal(remainder)...)
				alternatives = appendUnique(alternatives, alt)
			}
		}
	}

	digits := digitByDigit(strconv.FormatInt(absNum, 10))
	if num < 0 {
		digits = append([]string{"minus"}, digits...)
	}
	return appendUnique(alternatives, digits)
}

func expandDecimal(numStr string) [][]string {
	var alternatives [][]string

	isNegative := strings.HasPrefix(numStr, "-")
	numStr = strings.TrimPrefix(numStr, "-")

	intPart, decPart, _ := strings.Cut(numStr, ".")
	intNum, _ := strconv.ParseInt(intPart, 10, 64)
	intWords := Cardinal(intNum)

	withSign := func(words []string) []string {
		if isNegative {
			return append([]string{"minus"}, words...)
		}
		return words
	}

	// Standard "X point Y Z" form, digit by digit after the point.
	decWords := digitsAsWords(decPart, false)
	standard := append(slices.Clone(intWords), "point")
	standard = append(standard, decWords...)
	alternatives = append(alternatives, withSign(standard))

	// "oh" variant for zeros after the point: "three point oh seven".
	decWordsOh := digitsAsWords(decPart, true)
	if !slices.Equal(decWordsOh, decWords) {
		ohVariant := append(slices.Clone(intWords), "point")
		ohVariant = append(ohVariant, decWordsOh...)
		alternatives = appendUnique(alternatives, withSign(ohVariant))
	}

	if intNum == 0 && !isNegative {
		// Omit the leading zero: "point three".
		noZero := append([]string{"point"}, decWords...)
		alternatives = appendUnique(alternatives, noZero)

		ohStart := append([]string{"oh", "point"}, decWords...)
		alternatives = appendUnique(alternatives, ohStart)
	}

	if !isNegative {
		for _, fractionAlt := range commonFractions[numStr] {
			alternatives = appendUnique(alternatives, fractionAlt)
		}
	}

	return alternatives
}

func expandOrdinal(digits string) [][]string {
	num, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}
	return [][]string{Ordinal(num)}
}

func expandUnitSuffix(suffix string) [][]string {
	lower := strings.ToLower(suffix)
	if exps, ok := unitExpansions[lower]; ok {
		return exps
	}
	// Unknown units are spelled out letter by letter.
	letters := make([]string, 0, len(lower))
	for _, r := range lower {
		letters = append(letters, string(r))
	}
	return [][]string{letters}
}

func expandNumberPart(numStr string) [][]string {
	if strings.Contains(numStr, ".") {
		return expandDecimal(numStr)
	}
	return expandIntegerString(numStr)
}

func expandMixed(token string) [][]string {
	var alternatives [][]string

	if m := prefixMixedPat.FindStringSubmatch(token); m != nil {
		letters := strings.ToLower(m[1])

		// Spell out short prefixes like "M3"; keep longer ones whole so
		// "word1" reads as "word one".
		var letterWords []string
		if len(letters) <= 2 {
			for _, r := range letters {
				letterWords = append(letterWords, string(r))
			}
		} else {
			letterWords = []string{letters}
		}

		for _, numExp := range expandNumberPart(m[2]) {
			alt := append(slices.Clone(letterWords), numExp...)
			alternatives = appendUnique(alternatives, alt)
		}
		return alternatives
	}

	if m := suffixMixedPat.FindStringSubmatch(token); m != nil {
		numExpansions := expandNumberPart(m[1])
		suffixExpansions := expandUnitSuffix(m[2])

		for _, numExp := range numExpansions {
			for _, suffixExp := range suffixExpansions {
				alt := append(slices.Clone(numExp), suffixExp...)
				alternatives = appendUnique(alternatives, alt)
			}
		}
		return alternatives
	}

	return nil
}

func expandRateUnit(token string) [][]string {
	m := rateUnitPat.FindStringSubmatch(token)
	if m == nil {
		return nil
	}

	var alternatives [][]string
	for _, numExp := range expandNumberPart(m[1]) {
		for _, firstExp := range expandUnitSuffix(m[2]) {
			for _, secondExp := range expandUnitSuffix(m[3]) {
				alt := append(slices.Clone(numExp), firstExp...)
				alt = append(alt, "per")
				alt = append(alt, secondExp...)
				alternatives = appendUnique(alternatives, alt)
			}
		}
	}
	return alternatives
}
