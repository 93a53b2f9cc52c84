package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/ielts-coach/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// Kind names a prompt template.
type Kind string

const (
	KindFeedback Kind = "feedback"
	KindDefine   Kind = "define"
	KindEssay    Kind = "essay"
	KindReport   Kind = "report"
)

const maxAnswerRunes = 10000

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Kind]*template.Template
)

var funcs = template.FuncMap{
	"join": strings.Join,
}

// FeedbackData holds template data for speaking feedback prompts.
type FeedbackData struct {
	TopicTitle string
	Question   string
	Bullets    []string
	History    string
	Answer     string
}

// DefineData holds template data for word definition prompts.
type DefineData struct {
	Word string
}

// WritingData holds template data for essay and report analysis prompts.
type WritingData struct {
	Topic string
	Text  string
}

// Load parses the embedded prompt templates.
// It uses sync.Once to ensure templates are loaded only once.
func Load() error {
	loadOnce.Do(func() {
		templates = make(map[Kind]*template.Template)
		for _, k := range []Kind{KindFeedback, KindDefine, KindEssay, KindReport} {
			name := "templates/" + string(k) + ".txt"
			content, err := templateFS.ReadFile(name)
			if err != nil {
				loadErr = errors.New("failed to read prompt file " + name + ": " + err.Error())
				return
			}
			tmpl, err := template.New(string(k)).Funcs(funcs).Parse(string(content))
			if err != nil {
				loadErr = errors.New("failed to parse prompt template " + name + ": " + err.Error())
				return
			}
			templates[k] = tmpl
		}
	})
	return loadErr
}

func execute(k Kind, data any) (string, error) {
	if err := Load(); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	var buf bytes.Buffer
	if err := templates[k].Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildFeedbackPrompt builds the speaking feedback prompt. history holds the
// turns before the answer being evaluated.
func BuildFeedbackPrompt(topicTitle, question string, bullets []string, history []model.Turn, answer string) (string, error) {
	return execute(KindFeedback, FeedbackData{
		TopicTitle: topicTitle,
		Question:   question,
		Bullets:    bullets,
		History:    RenderHistory(history),
		Answer:     sanitizeAnswer(answer),
	})
}

// BuildDefinePrompt builds the dictionary lookup prompt.
func BuildDefinePrompt(word string) (string, error) {
	return execute(KindDefine, DefineData{Word: strings.TrimSpace(word)})
}

// BuildEssayPrompt builds the Writing Task 2 analysis prompt.
func BuildEssayPrompt(topic, essay string) (string, error) {
	return execute(KindEssay, WritingData{Topic: strings.TrimSpace(topic), Text: sanitizeAnswer(essay)})
}

// BuildReportPrompt builds the Writing Task 1 analysis prompt.
func BuildReportPrompt(report string) (string, error) {
	return execute(KindReport, WritingData{Text: sanitizeAnswer(report)})
}

// RenderHistory renders turns as "Student:"/"Tutor:" lines.
func RenderHistory(turns []model.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		role := "Student"
		if t.Role == model.RoleAI {
			role = "Tutor"
		}
		lines = append(lines, role+": "+t.Text)
	}
	return strings.Join(lines, "\n")
}

func sanitizeAnswer(answer string) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		runes = runes[:maxAnswerRunes]
		answer = string(runes) + "\n\n[Answer truncated due to length]"
	}

	return answer
}
