package practice

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/pavelanni/ielts-coach/internal/model"
)

func part1Topic() model.Topic {
	return model.Topic{
		ID:        "p1_work",
		Title:     "Work or studies",
		Questions: []string{"Do you work or study?", "Why did you choose it?", "Do you like it?"},
	}
}

func part2Topic() model.Topic {
	return model.Topic{
		ID:           "p2_gift",
		Title:        "A gift",
		Part2:        "Describe a gift you gave someone",
		Part2Bullets: []string{"what it was", "who you gave it to", "why you chose it"},
		Part3:        []string{"Do people give gifts often?", "Are expensive gifts better?"},
	}
}

func TestSequencePart1(t *testing.T) {
	topic := part1Topic()
	slides := Sequence(topic)
	if len(slides) != len(topic.Questions) {
		t.Fatalf("got %d slides, want %d", len(slides), len(topic.Questions))
	}
	for i, s := range slides {
		if s.Type != model.SlidePart1 {
			t.Errorf("slide %d type = %q, want part1", i, s.Type)
		}
		if want := fmt.Sprintf("p1_work_p1_%d", i); s.ID != want {
			t.Errorf("slide %d id = %q, want %q", i, s.ID, want)
		}
		if s.Text != topic.Questions[i] {
			t.Errorf("slide %d text = %q, want %q", i, s.Text, topic.Questions[i])
		}
		if s.Bullets != nil {
			t.Errorf("slide %d should have no bullets", i)
		}
	}
}

func TestSequencePart2And3(t *testing.T) {
	topic := part2Topic()
	slides := Sequence(topic)
	if len(slides) != len(topic.Part3)+1 {
		t.Fatalf("got %d slides, want %d", len(slides), len(topic.Part3)+1)
	}

	card := slides[0]
	if card.Type != model.SlidePart2Card || card.ID != "p2_gift_p2" || card.Text != topic.Part2 {
		t.Errorf("card = %+v", card)
	}
	if !reflect.DeepEqual(card.Bullets, topic.Part2Bullets) {
		t.Errorf("bullets = %v, want %v", card.Bullets, topic.Part2Bullets)
	}

	for i, s := range slides[1:] {
		if s.Type != model.SlidePart3 {
			t.Errorf("slide %d type = %q, want part3", i+1, s.Type)
		}
		if want := fmt.Sprintf("p2_gift_p3_%d", i); s.ID != want {
			t.Errorf("slide %d id = %q, want %q", i+1, s.ID, want)
		}
	}
}

func TestSequenceIsDeterministic(t *testing.T) {
	for _, topic := range []model.Topic{part1Topic(), part2Topic()} {
		a, b := Sequence(topic), Sequence(topic)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Sequence(%s) not deterministic", topic.ID)
		}
	}
}

func TestSequenceBulletsAreCopied(t *testing.T) {
	topic := part2Topic()
	slides := Sequence(topic)
	slides[0].Bullets[0] = "changed"
	if topic.Part2Bullets[0] == "changed" {
		t.Error("slide bullets alias the topic's slice")
	}
}

func TestClampIndex(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{0, 3, 0},
		{2, 3, 2},
		{5, 3, 2},
		{-1, 3, 0},
		{0, 0, 0},
		{4, 0, 0},
	}
	for _, tt := range tests {
		if got := ClampIndex(tt.i, tt.n); got != tt.want {
			t.Errorf("ClampIndex(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}

func TestFindSlide(t *testing.T) {
	slides := Sequence(part2Topic())
	s, i, ok := FindSlide(slides, "p2_gift_p3_1")
	if !ok || i != 2 || s.Text != "Are expensive gifts better?" {
		t.Errorf("FindSlide = %+v, %d, %v", s, i, ok)
	}
	if _, _, ok := FindSlide(slides, "nope"); ok {
		t.Error("FindSlide should miss unknown id")
	}
}
