package practice

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pavelanni/ielts-coach/internal/model"
)

var (
	// Markers must be bold; a plain "Band 7.0 version" in prose is not a split point.
	band7Marker = regexp.MustCompile(`(?i)\*\*[ \t]*band[ \t]+7\.0[ \t]+version[ \t]*[:：]?[ \t]*\*\*[ \t]*[:：]?`)
	band8Marker = regexp.MustCompile(`(?i)\*\*[ \t]*band[ \t]+8\.0[ \t]+version[ \t]*[:：]?[ \t]*\*\*[ \t]*[:：]?`)
)

const translationMarker = "(Translation:"

// ParseResponse splits feedback text into the free-form feedback block and
// the Band 7.0 / Band 8.0 model answers. It accepts any input. Without the
// Band 7.0 marker the whole text is feedback; the Band 8.0 marker is only
// looked for after it.
func ParseResponse(text string) model.ParsedResponse {
	var out model.ParsedResponse

	rest := text
	if loc := band7Marker.FindStringIndex(rest); loc != nil {
		out.Feedback = rest[:loc[0]]
		rest = rest[loc[1]:]
		if loc8 := band8Marker.FindStringIndex(rest); loc8 != nil {
			out.Band7 = rest[:loc8[0]]
			out.Band8 = rest[loc8[1]:]
		} else {
			out.Band7 = rest
		}
	} else {
		out.Feedback = rest
	}

	out.Feedback = strings.TrimSpace(out.Feedback)
	out.Band7 = strings.TrimSpace(out.Band7)
	out.Band8 = strings.TrimSpace(out.Band8)
	return out
}

// StripTranslation drops a trailing "(Translation: ...)" block.
func StripTranslation(text string) string {
	if i := strings.Index(text, translationMarker); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// MaxSpeechRunes caps the text sent for synthesis.
const MaxSpeechRunes = 400

// PrepareSpeechText drops the translation block and keeps the first
// MaxSpeechRunes runes.
func PrepareSpeechText(text string) string {
	text = StripTranslation(text)
	if utf8.RuneCountInString(text) > MaxSpeechRunes {
		text = string([]rune(text)[:MaxSpeechRunes])
	}
	return text
}
