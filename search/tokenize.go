package search

import (
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// wordPattern segments text into runs of letters, digits, and the
// decimal point (so "1.10" tokenizes as a single word, matching the
// numeric-looking keyword fixture in the seed search scenario).
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:\.[\p{L}\p{N}]+)*`)

var lowerCaser = cases.Lower(language.Und)

// Tokenize lowercases s (Unicode-correct, not ASCII-only) and splits
// it into word tokens on non-word boundaries.
func Tokenize(s string) []string {
	lowered := lowerCaser.String(s)
	return wordPattern.FindAllString(lowered, -1)
}
