// Package practice implements the speaking practice session: turning a topic
// into a deck of slides, keeping a per-slide transcript of answers and
// feedback, and splitting feedback into its display sections.
package practice

import (
	"fmt"
	"slices"

	"github.com/pavelanni/ielts-coach/internal/model"
)

// Sequence flattens a topic into its ordered deck of slides. The result
// depends only on the topic, so slide IDs are stable transcript keys.
func Sequence(topic model.Topic) []model.Slide {
	if topic.IsPart1() {
		slides := make([]model.Slide, 0, len(topic.Questions))
		for i, q := range topic.Questions {
			slides = append(slides, model.Slide{
				ID:   fmt.Sprintf("%s_p1_%d", topic.ID, i),
				Type: model.SlidePart1,
				Text: q,
			})
		}
		return slides
	}

	slides := make([]model.Slide, 0, len(topic.Part3)+1)
	slides = append(slides, model.Slide{
		ID:      topic.ID + "_p2",
		Type:    model.SlidePart2Card,
		Text:    topic.Part2,
		Bullets: slices.Clone(topic.Part2Bullets),
	})
	for i, q := range topic.Part3 {
		slides = append(slides, model.Slide{
			ID:   fmt.Sprintf("%s_p3_%d", topic.ID, i),
			Type: model.SlidePart3,
			Text: q,
		})
	}
	return slides
}

// ClampIndex clamps a navigation index into [0, n-1]. An empty deck clamps to 0.
func ClampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// FindSlide returns the slide with the given ID and its position in slides.
func FindSlide(slides []model.Slide, id string) (model.Slide, int, bool) {
	for i, s := range slides {
		if s.ID == id {
			return s, i, true
		}
	}
	return model.Slide{}, -1, false
}
