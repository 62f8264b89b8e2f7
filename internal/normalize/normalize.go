// Package normalize converts localized Vietnamese price and area strings into
// canonical numeric values. All functions are pure and never return errors:
// input that cannot be parsed yields zero.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Magnitude words and the number of zeros they contribute. "tỷ" is checked
// first so that mixed strings resolve on the larger unit.
var magnitudes = []struct {
	word  string
	zeros int
}{
	{"tỷ", 9},
	{"triệu", 6},
}

var currencyWords = []string{"vnđ", "vnd", "đồng"}

var (
	decimalRe = regexp.MustCompile(`([0-9]+)(?:[.,]([0-9]+))?`)
	digitsRe  = regexp.MustCompile(`[0-9]+`)
)

// Price parses a localized price string into integer VND.
//
// Magnitude words are resolved before digit-group separators are stripped,
// because separators double as decimal points in front of a magnitude word:
// "2.5 tỷ" is 2.5 billion, not 25 stripped of its dot. Without a magnitude
// word the string is treated as a plain separated integer ("1,000,000,000").
// Empty or digit-free input yields 0.
func Price(text string) int64 {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return 0
	}
	for _, m := range magnitudes {
		idx := strings.Index(s, m.word)
		if idx < 0 {
			continue
		}
		if n, ok := scaleByWord(s[:idx], m.zeros); ok {
			return n
		}
		// Magnitude word with no leading number contributes nothing.
		s = strings.ReplaceAll(s, m.word, " ")
	}
	for _, w := range currencyWords {
		s = strings.ReplaceAll(s, w, "")
	}
	return joinDigitRuns(s)
}

// scaleByWord parses the last decimal number in prefix and scales it by
// 10^zeros using digit concatenation, so "2.5"+9 zeros becomes 25 followed
// by 8 zeros. Fractional digits beyond the magnitude are truncated.
func scaleByWord(prefix string, zeros int) (int64, bool) {
	matches := decimalRe.FindAllStringSubmatch(prefix, -1)
	if len(matches) == 0 {
		return 0, false
	}
	last := matches[len(matches)-1]
	intPart, fracPart := last[1], last[2]

	digits := intPart + fracPart
	pad := zeros - len(fracPart)
	if pad < 0 {
		digits = digits[:len(digits)+pad]
		pad = 0
	}
	n, err := strconv.ParseInt(strings.TrimLeft(digits, "0")+strings.Repeat("0", pad), 10, 64)
	if err != nil {
		// All-zero digits trim to nothing; anything else is overflow garbage.
		if strings.Trim(digits, "0") == "" {
			return 0, true
		}
		return 0, false
	}
	return n, true
}

// Area parses a localized area string into square meters. Unit suffixes and
// digit-group separators are stripped, remaining digit runs are concatenated.
// Empty or digit-free input yields 0.
func Area(text string) float64 {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return 0
	}
	for _, unit := range []string{"m²", "m2", "sqm"} {
		s = strings.ReplaceAll(s, unit, "")
	}
	return float64(joinDigitRuns(s))
}

// PricePerArea derives the price per square meter. Zero or negative area
// yields 0 rather than an error; listings without a usable area simply have
// no per-area price.
func PricePerArea(price int64, area float64) float64 {
	if area <= 0 {
		return 0
	}
	return float64(price) / area
}

// FirstInt extracts the first digit run in text as an int. The second return
// is false when text contains no digits, which callers must treat as "value
// absent", never as zero.
func FirstInt(text string) (int, bool) {
	run := digitsRe.FindString(text)
	if run == "" {
		return 0, false
	}
	n, err := strconv.Atoi(run)
	if err != nil {
		return 0, false
	}
	return n, true
}

func joinDigitRuns(s string) int64 {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, ".", "")
	runs := digitsRe.FindAllString(s, -1)
	if len(runs) == 0 {
		return 0
	}
	joined := strings.TrimLeft(strings.Join(runs, ""), "0")
	if joined == "" {
		return 0
	}
	n, err := strconv.ParseInt(joined, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
