package cluster

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const minTokenRunes = 2

// Tokenize splits a title into lowercase keyword tokens. Punctuation is
// treated as a separator, tokens shorter than two runes are dropped and
// duplicates collapse into one entry.
func Tokenize(title string) map[string]struct{} {
	fields := strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		token := strings.ToLower(field)
		if utf8.RuneCountInString(token) < minTokenRunes {
			continue
		}
		tokens[token] = struct{}{}
	}
	return tokens
}

// SharedTokens counts tokens present in both sets.
func SharedTokens(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	shared := 0
	for token := range a {
		if _, ok := b[token]; ok {
			shared++
		}
	}
	return shared
}

// OverlapFraction returns the fraction of keywords that appear in tokens,
// together with the absolute match count.
func OverlapFraction(keywords, tokens map[string]struct{}) (float64, int) {
	if len(keywords) == 0 {
		return 0, 0
	}
	matched := SharedTokens(keywords, tokens)
	return float64(matched) / float64(len(keywords)), matched
}
