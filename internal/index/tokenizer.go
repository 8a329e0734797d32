package index

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// stopWords is a fixed set of common English function words excluded from the
// vocabulary. Not locale-aware.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "for": {}, "from": {},
	"has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "its": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "this": {},
	"to": {}, "was": {}, "were": {}, "will": {}, "with": {},
}

// Tokenize normalizes text into index terms: lowercase, every rune that is not
// a letter, digit, whitespace, or hyphen becomes a space, split on whitespace,
// then tokens of length <= 1 and stop words are dropped. Identical input always
// yields the identical token sequence.
func Tokenize(text string) []string {
	normalized := strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '-' {
			return r
		}
		return ' '
	}, text)

	fields := strings.Fields(normalized)
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) <= 1 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}
