package practice

import (
	"strings"
	"unicode"
)

// ExtractWord cleans a clicked token for dictionary lookup. Letters, digits,
// underscores and CJK ideographs are kept; apostrophes and hyphens survive
// only inside the word. It reports false when nothing is left to look up.
func ExtractWord(token string) (string, bool) {
	var sb strings.Builder
	for _, r := range token {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.Is(unicode.Han, r), unicode.IsMark(r):
			sb.WriteRune(r)
		case r == '_', r == '\'', r == '’', r == '-':
			sb.WriteRune(r)
		}
	}
	word := strings.Trim(sb.String(), "'’-")
	return word, word != ""
}
