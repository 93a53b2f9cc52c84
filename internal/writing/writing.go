// Package writing analyzes IELTS Writing Task 1 reports and Task 2 essays.
package writing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/pavelanni/ielts-coach/internal/llm"
	"github.com/pavelanni/ielts-coach/internal/model"
)

// MaxImageBytes bounds an uploaded Task 1 chart.
const MaxImageBytes = 10 << 20

// MaxPDFBytes bounds an uploaded essay document.
const MaxPDFBytes = 10 << 20

// AnalysisErrorText replaces the analysis when the model call fails.
const AnalysisErrorText = "Error analyzing writing. Please try again."

// DefaultTimeout bounds one analysis request.
const DefaultTimeout = 2 * time.Minute

// ValidationError is a rejected submission. Its text is shown to the learner.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

const (
	ErrNoImage       ValidationError = "Please upload an image for Task 1."
	ErrNoText        ValidationError = "Please enter your report/essay."
	ErrImageTooLarge ValidationError = "The image must be 10 MB or smaller."
	ErrNotImage      ValidationError = "The uploaded file is not an image."
	ErrPDFTooLarge   ValidationError = "The PDF must be 10 MB or smaller."
)

// Submission is one writing check request.
type Submission struct {
	Task  model.WritingTask
	Topic string
	Text  string
	Image *llm.Image
}

// Normalize trims the text fields and defaults the task to Task 2.
func (s *Submission) Normalize() {
	if s.Task != model.WritingTask1 {
		s.Task = model.WritingTask2
	}
	s.Topic = strings.TrimSpace(s.Topic)
	s.Text = strings.TrimSpace(s.Text)
}

// Validate checks a submission before any model request is made. A Task 1
// submission without an image is reported before missing text.
func (s Submission) Validate() error {
	if s.Task == model.WritingTask1 && (s.Image == nil || len(s.Image.Data) == 0) {
		return ErrNoImage
	}
	if strings.TrimSpace(s.Text) == "" {
		return ErrNoText
	}
	return nil
}

// NewImage checks an uploaded chart and resolves its MIME type, sniffing the
// content when the declared type is missing or not an image.
func NewImage(data []byte, declared string) (*llm.Image, error) {
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	if len(data) > MaxImageBytes {
		return nil, ErrImageTooLarge
	}
	mime := strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, ErrNotImage
	}
	return &llm.Image{MIMEType: mime, Data: data}, nil
}

// Analyze runs a validated submission through gen. A failed call yields a
// review marked Failed whose analysis is AnalysisErrorText.
func Analyze(ctx context.Context, gen llm.Generator, s Submission) model.WritingReview {
	review := model.WritingReview{
		Task:      s.Task,
		Topic:     s.Topic,
		Essay:     s.Text,
		CreatedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	var (
		analysis string
		err      error
	)
	if s.Task == model.WritingTask1 {
		review.ImageMIME = s.Image.MIMEType
		analysis, err = gen.AnalyzeReport(ctx, s.Text, *s.Image)
	} else {
		analysis, err = gen.AnalyzeEssay(ctx, s.Topic, s.Text)
	}
	if err == nil && strings.TrimSpace(analysis) == "" {
		err = errors.New("empty analysis")
	}
	if err != nil {
		slog.Error("writing analysis failed", "task", s.Task, "error", err)
		review.Analysis = AnalysisErrorText
		review.Failed = true
		return review
	}
	review.Analysis = strings.TrimSpace(analysis)
	return review
}

// PDFText extracts the plain text of every page of a PDF document. Documents
// over MaxPDFBytes return ErrPDFTooLarge.
func PDFText(data []byte) (string, error) {
	if len(data) > MaxPDFBytes {
		return "", ErrPDFTooLarge
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var content strings.Builder
	for n := 1; n <= r.NumPage(); n++ {
		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", n, err)
		}
		if content.Len() > 0 {
			content.WriteString("\n")
		}
		content.WriteString(text)
	}
	return strings.TrimSpace(content.String()), nil
}
