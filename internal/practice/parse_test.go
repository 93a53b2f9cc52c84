package practice

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pavelanni/ielts-coach/internal/model"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want model.ParsedResponse
	}{
		{
			name: "no markers",
			in:   "Some feedback only",
			want: model.ParsedResponse{Feedback: "Some feedback only"},
		},
		{
			name: "both markers bold",
			in:   "FB **Band 7.0 Version** Seven text **Band 8.0 Version** Eight text",
			want: model.ParsedResponse{Feedback: "FB", Band7: "Seven text", Band8: "Eight text"},
		},
		{
			name: "empty",
			in:   "",
			want: model.ParsedResponse{},
		},
		{
			name: "colon inside bold",
			in:   "- Fluency ok\n\n**Band 7.0 Version:**\nI live in Beijing.\n(Translation: 我住在北京。)\n\n**Band 8.0 Version:**\nI'm based in Beijing.",
			want: model.ParsedResponse{
				Feedback: "- Fluency ok",
				Band7:    "I live in Beijing.\n(Translation: 我住在北京。)",
				Band8:    "I'm based in Beijing.",
			},
		},
		{
			name: "colon after bold and lower case",
			in:   "fb\n**band 7.0 version**: seven\n**BAND 8.0 VERSION**: eight",
			want: model.ParsedResponse{Feedback: "fb", Band7: "seven", Band8: "eight"},
		},
		{
			name: "fullwidth colon after bold",
			in:   "fb **Band 7.0 Version**： seven **Band 8.0 Version**： eight",
			want: model.ParsedResponse{Feedback: "fb", Band7: "seven", Band8: "eight"},
		},
		{
			name: "only band 7",
			in:   "fb **Band 7.0 Version** seven",
			want: model.ParsedResponse{Feedback: "fb", Band7: "seven"},
		},
		{
			name: "only band 8 stays in feedback",
			in:   "fb **Band 8.0 Version** eight",
			want: model.ParsedResponse{Feedback: "fb **Band 8.0 Version** eight"},
		},
		{
			name: "plain mention before bold marker",
			in:   "Compare your answer with the Band 7.0 version I give below. **Band 7.0 Version** seven **Band 8.0 Version** eight",
			want: model.ParsedResponse{
				Feedback: "Compare your answer with the Band 7.0 version I give below.",
				Band7:    "seven",
				Band8:    "eight",
			},
		},
		{
			name: "unbolded markers are prose",
			in:   "fb Band 7.0 Version: seven Band 8.0 Version: eight",
			want: model.ParsedResponse{Feedback: "fb Band 7.0 Version: seven Band 8.0 Version: eight"},
		},
		{
			name: "band 8 before band 7 is ignored",
			in:   "fb **Band 8.0 Version** eight **Band 7.0 Version** seven",
			want: model.ParsedResponse{Feedback: "fb **Band 8.0 Version** eight", Band7: "seven"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseResponse(tt.in); got != tt.want {
				t.Errorf("ParseResponse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStripTranslation(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"I live in Beijing.\n(Translation: 我住在北京。)", "I live in Beijing."},
		{"  no translation here  ", "no translation here"},
		{"(Translation: only)", ""},
	}
	for _, tt := range tests {
		if got := StripTranslation(tt.in); got != tt.want {
			t.Errorf("StripTranslation(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrepareSpeechText(t *testing.T) {
	short := "Hello there.\n(Translation: 你好。)"
	if got := PrepareSpeechText(short); got != "Hello there." {
		t.Errorf("PrepareSpeechText(short) = %q", got)
	}

	long := strings.Repeat("ab ", 300) + "(Translation: x)"
	got := PrepareSpeechText(long)
	if n := utf8.RuneCountInString(got); n != MaxSpeechRunes {
		t.Errorf("long text has %d runes, want %d", n, MaxSpeechRunes)
	}

	wide := strings.Repeat("说", 500)
	if n := utf8.RuneCountInString(PrepareSpeechText(wide)); n != MaxSpeechRunes {
		t.Errorf("CJK text has %d runes, want %d", n, MaxSpeechRunes)
	}
}
