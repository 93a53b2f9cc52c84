package writing

import (
	"context"
	"errors"
	"testing"

	"github.com/pavelanni/ielts-coach/internal/llm"
	"github.com/pavelanni/ielts-coach/internal/model"
)

type fakeAnalyzer struct {
	llm.Generator
	out   string
	err   error
	topic string
	chart llm.Image
}

func (f *fakeAnalyzer) AnalyzeEssay(_ context.Context, topic, _ string) (string, error) {
	f.topic = topic
	return f.out, f.err
}

func (f *fakeAnalyzer) AnalyzeReport(_ context.Context, _ string, chart llm.Image) (string, error) {
	f.chart = chart
	return f.out, f.err
}

func TestValidate(t *testing.T) {
	img := &llm.Image{MIMEType: "image/png", Data: []byte{1}}
	tests := []struct {
		name string
		sub  Submission
		want error
	}{
		{"task1 no image", Submission{Task: model.WritingTask1, Text: "report"}, ErrNoImage},
		{"task1 no image or text", Submission{Task: model.WritingTask1}, ErrNoImage},
		{"task1 empty image", Submission{Task: model.WritingTask1, Text: "r", Image: &llm.Image{}}, ErrNoImage},
		{"task1 no text", Submission{Task: model.WritingTask1, Image: img}, ErrNoText},
		{"task2 blank", Submission{Task: model.WritingTask2, Text: " \n "}, ErrNoText},
		{"task1 ok", Submission{Task: model.WritingTask1, Text: "r", Image: img}, nil},
		{"task2 ok", Submission{Task: model.WritingTask2, Text: "essay"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.sub.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	s := Submission{Task: "bogus", Topic: "  Q  ", Text: "\tessay\n"}
	s.Normalize()
	if s.Task != model.WritingTask2 || s.Topic != "Q" || s.Text != "essay" {
		t.Errorf("Normalize() = %+v", s)
	}
}

func TestNewImage(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)

	img, err := NewImage(png, "application/octet-stream")
	if err != nil || img.MIMEType != "image/png" {
		t.Errorf("sniffed = %+v, %v", img, err)
	}
	img, err = NewImage(png, "image/jpeg; charset=binary")
	if err != nil || img.MIMEType != "image/jpeg" {
		t.Errorf("declared = %+v, %v", img, err)
	}
	if _, err := NewImage(nil, "image/png"); !errors.Is(err, ErrNoImage) {
		t.Errorf("empty = %v", err)
	}
	if _, err := NewImage([]byte("hello world"), ""); !errors.Is(err, ErrNotImage) {
		t.Errorf("text = %v", err)
	}
	if _, err := NewImage(make([]byte, MaxImageBytes+1), "image/png"); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("large = %v", err)
	}
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()

	f := &fakeAnalyzer{out: "  Band 7  "}
	r := Analyze(ctx, f, Submission{Task: model.WritingTask2, Topic: "Cities", Text: "essay"})
	if r.Failed || r.Analysis != "Band 7" || f.topic != "Cities" || r.Essay != "essay" {
		t.Errorf("task2 review = %+v", r)
	}

	chart := &llm.Image{MIMEType: "image/png", Data: []byte{1, 2}}
	r = Analyze(ctx, f, Submission{Task: model.WritingTask1, Text: "report", Image: chart})
	if r.ImageMIME != "image/png" || len(f.chart.Data) != 2 {
		t.Errorf("task1 review = %+v, chart %+v", r, f.chart)
	}

	for _, bad := range []*fakeAnalyzer{{err: errors.New("down")}, {out: "   "}} {
		r = Analyze(ctx, bad, Submission{Task: model.WritingTask2, Text: "essay"})
		if !r.Failed || r.Analysis != AnalysisErrorText {
			t.Errorf("failed review = %+v", r)
		}
	}
}

func TestPDFTextRejectsGarbage(t *testing.T) {
	if _, err := PDFText([]byte("not a pdf")); err == nil {
		t.Error("expected error for non-PDF input")
	}
	var verr ValidationError
	if _, err := PDFText([]byte("not a pdf")); errors.As(err, &verr) {
		t.Errorf("parse failure reported as validation error %q", verr)
	}
}

func TestPDFTextTooLarge(t *testing.T) {
	_, err := PDFText(make([]byte, MaxPDFBytes+1))
	if !errors.Is(err, ErrPDFTooLarge) {
		t.Errorf("PDFText(oversize) = %v, want ErrPDFTooLarge", err)
	}
}
