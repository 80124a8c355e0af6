package numspeech_test

import (
	"slices"
	"testing"

	"github.com/EdNutting/autocue/internal/script/numspeech"
)

func TestCardinal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		num  int64
		want []string
	}{
		{0, []string{"zero"}},
		{7, []string{"seven"}},
		{13, []string{"thirteen"}},
		{21, []string{"twenty", "one"}},
		{100, []string{"one", "hundred"}},
		{150, []string{"one", "hundred", "and", "fifty"}},
		{1000, []string{"one", "thousand"}},
		{1001, []string{"one", "thousand", "and", "one"}},
		{1100, []string{"one", "thousand", "one", "hundred"}},
		{1234, []string{"one", "thousand", "two", "hundred", "and", "thirty", "four"}},
		{1000000, []string{"one", "million"}},
		{2500000, []string{"two", "million", "five", "hundred", "thousand"}},
		{-42, []string{"minus", "forty", "two"}},
	}
	for _, tc := range cases {
		if got := numspeech.Cardinal(tc.num); !slices.Equal(got, tc.want) {
			t.Errorf("Cardinal(%d) = %v, want %v", tc.num, got, tc.want)
		}
	}
}

func TestOrdinal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		num  int64
		want []string
	}{
		{1, []string{"first"}},
		{2, []string{"second"}},
		{3, []string{"third"}},
		{4, []string{"fourth"}},
		{5, []string{"fifth"}},
		{8, []string{"eighth"}},
		{9, []string{"ninth"}},
		{12, []string{"twelfth"}},
		{20, []string{"twentieth"}},
		{23, []string{"twenty", "third"}},
		{100, []string{"one", "hundredth"}},
		{101, []string{"one", "hundred", "and", "first"}},
		{1000, []string{"one", "thousandth"}},
	}
	for _, tc := range cases {
		if got := numspeech.Ordinal(tc.num); !slices.Equal(got, tc.want) {
			t.Errorf("Ordinal(%d) = %v, want %v", tc.num, got, tc.want)
		}
	}
}

func TestIsNumberToken(t *testing.T) {
	t.Parallel()

	numbers := []string{"100", "-100", "1,100", "1,000,000", "3.07", "0.5", "1st", "23rd", "M3", "4K", "100GB", "4.05GHz", "100GB/s"}
	for _, tok := range numbers {
		if !numspeech.IsNumberToken(tok) {
			t.Errorf("IsNumberToken(%q) = false, want true", tok)
		}
	}

	notNumbers := []string{"", "   ", "hello", "&", "^", "one"}
	for _, tok := range notNumbers {
		if numspeech.IsNumberToken(tok) {
			t.Errorf("IsNumberToken(%q) = true, want false", tok)
		}
	}
}

func TestExpansions_Integer(t *testing.T) {
	t.Parallel()

	got := numspeech.Expansions("100")
	want := [][]string{
		{"one", "hundred"},
		{"a", "hundred"},
		{"one", "zero", "zero"},
	}
	assertExpansions(t, "100", got, want)
}

func TestExpansions_ElevenHundredForms(t *testing.T) {
	t.Parallel()

	got := numspeech.Expansions("1100")
	want := [][]string{
		{"one", "thousand", "one", "hundred"},
		{"a", "thousand", "one", "hundred"},
		{"eleven", "hundred"},
		{"one", "one", "zero", "zero"},
	}
	assertExpansions(t, "1100", got, want)
}

func TestExpansions_CommaInteger(t *testing.T) {
	t.Parallel()

	got := numspeech.Expansions("1,000")
	want := [][]string{
		{"one", "thousand"},
		{"a", "thousand"},
		{"one", "zero", "zero", "zero"},
	}
	assertExpansions(t, "1,000", got, want)
}

func TestExpansions_Decimal(t *testing.T) {
	t.Parallel()

	got := numspeech.Expansions("3.07")
	want := [][]string{
		{"three", "point", "zero", "seven"},
		{"three", "point", "oh", "seven"},
	}
	assertExpansions(t, "3.07", got, want)
}

func TestExpansions_CommonFraction(t *testing.T) {
	t.Parallel()

	got := numspeech.Expansions("0.5")
	want := [][]string{
		{"zero", "point", "five"},
		{"point", "five"},
		{"oh", "point", "five"},
		{"half"},
		{"one", "half"},
		{"a", "half"},
	}
	assertExpansions(t, "0.5", got, want)
}

func TestExpansions_Ordinals(t *testing.T) {
	t.Parallel()

	cases := map[string][][]string{
		"1st":  {{"first"}},
		"2nd":  {{"second"}},
		"23rd": {{"twenty", "third"}},
	}
	for tok, want := range cases {
		assertExpansions(t, tok, numspeech.Expansions(tok), want)
	}
}

func TestExpansions_MixedAlphanumeric(t *testing.T) {
	t.Parallel()

	assertExpansions(t, "M3", numspeech.Expansions("M3"), [][]string{{"m", "three"}})
	assertExpansions(t, "4K", numspeech.Expansions("4K"), [][]string{
		{"four", "k"},
		{"four", "thousand"},
	})

	// Longer letter prefixes stay whole.
	assertExpansions(t, "word1", numspeech.Expansions("word1"), [][]string{{"word", "one"}})
}

func TestExpansions_UnitSuffix(t *testing.T) {
	t.Parallel()

	got := numspeech.Expansions("100GB")
	mustContain(t, "100GB", got, []string{"one", "hundred", "gigabytes"})
	mustContain(t, "100GB", got, []string{"one", "hundred", "g", "b"})
	mustContain(t, "100GB", got, []string{"a", "hundred", "gigs"})
}

func TestExpansions_RateUnit(t *testing.T) {
	t.Parallel()

	got := numspeech.Expansions("100GB/s")
	if len(got) == 0 {
		t.Fatalf("Expansions(%q) = nil, want rate expansions", "100GB/s")
	}
	mustContain(t, "100GB/s", got, []string{"one", "hundred", "g", "b", "per", "s"})
	mustContain(t, "100GB/s", got, []string{"one", "hundred", "gigabytes", "per", "second"})
}

func TestExpansions_NotANumber(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"hello", "", "&"} {
		if got := numspeech.Expansions(tok); got != nil {
			t.Errorf("Expansions(%q) = %v, want nil", tok, got)
		}
	}
}

func TestFirstWords(t *testing.T) {
	t.Parallel()

	got := numspeech.FirstWords("100")
	want := []string{"one", "a"}
	if !slices.Equal(got, want) {
		t.Errorf("FirstWords(%q) = %v, want %v", "100", got, want)
	}

	if got := numspeech.FirstWords("hello"); got != nil {
		t.Errorf("FirstWords(%q) = %v, want nil", "hello", got)
	}
}

func assertExpansions(t *testing.T, token string, got, want [][]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expansions(%q) = %v, want %v", token, got, want)
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Errorf("Expansions(%q)[%d] = %v, want %v", token, i, got[i], want[i])
		}
	}
}

func mustContain(t *testing.T, token string, got [][]string, want []string) {
	t.Helper()
	for _, alt := range got {
		if slices.Equal(alt, want) {
			return
		}
	}
	t.Errorf("Expansions(%q) = %v, missing alternative %v", token, got, want)
}
