package practice

import (
	"reflect"
	"testing"

	"github.com/pavelanni/ielts-coach/internal/model"
)

const testSlide = "p1_work_p1_0"

func user(text string) model.Turn { return model.Turn{Role: model.RoleUser, Text: text} }
func ai(text string) model.Turn   { return model.Turn{Role: model.RoleAI, Text: text} }

func newTranscriptWith(turns ...model.Turn) *Transcript {
	tr := NewTranscript()
	for _, turn := range turns {
		tr.Append(testSlide, turn)
	}
	return tr
}

func TestSubmit(t *testing.T) {
	tr := NewTranscript()
	idx := tr.Submit(testSlide, "hello")
	if idx != 1 {
		t.Errorf("Submit index = %d, want 1", idx)
	}
	want := []model.Turn{
		{Role: model.RoleUser, Text: "hello"},
		{Role: model.RoleAI, Text: "", IsTyping: true},
	}
	if got := tr.Turns(testSlide); !reflect.DeepEqual(got, want) {
		t.Errorf("Turns = %+v, want %+v", got, want)
	}

	if idx := tr.Submit(testSlide, "again"); idx != 3 {
		t.Errorf("second Submit index = %d, want 3", idx)
	}
}

func TestUpdateAt(t *testing.T) {
	tr := newTranscriptWith(user("a"), model.Turn{Role: model.RoleAI, IsTyping: true})

	if !tr.UpdateAt(testSlide, 1, Patch("partial", false)) {
		t.Fatal("UpdateAt in range returned false")
	}
	got, _ := tr.Turn(testSlide, 1)
	if got.Text != "partial" || got.IsTyping {
		t.Errorf("turn = %+v", got)
	}

	text := "only text"
	tr.UpdateAt(testSlide, 1, TurnPatch{Text: &text})
	got, _ = tr.Turn(testSlide, 1)
	if got.Text != "only text" || got.Role != model.RoleAI {
		t.Errorf("partial patch turn = %+v", got)
	}

	before := tr.Turns(testSlide)
	for _, idx := range []int{-1, 2, 100} {
		if tr.UpdateAt(testSlide, idx, Patch("x", true)) {
			t.Errorf("UpdateAt(%d) reported success", idx)
		}
	}
	if tr.UpdateAt("missing", 0, Patch("x", true)) {
		t.Error("UpdateAt on unknown slide reported success")
	}
	if !reflect.DeepEqual(tr.Turns(testSlide), before) {
		t.Error("out-of-range UpdateAt changed the transcript")
	}
}

func TestRegenerate(t *testing.T) {
	t.Run("index zero is a no-op", func(t *testing.T) {
		tr := newTranscriptWith(ai("orphan"), user("u"))
		before := tr.Turns(testSlide)
		if tr.Regenerate(testSlide, 0) {
			t.Error("Regenerate(0) reported success")
		}
		if !reflect.DeepEqual(tr.Turns(testSlide), before) {
			t.Error("Regenerate(0) changed the transcript")
		}
	})

	t.Run("resets only the target turn", func(t *testing.T) {
		tr := newTranscriptWith(user("u0"), ai("a0"), user("u1"), ai("a1"))
		if !tr.Regenerate(testSlide, 3) {
			t.Fatal("Regenerate(3) returned false")
		}
		want := []model.Turn{user("u0"), ai("a0"), user("u1"), {Role: model.RoleAI, IsTyping: true}}
		if got := tr.Turns(testSlide); !reflect.DeepEqual(got, want) {
			t.Errorf("Turns = %+v, want %+v", got, want)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		tr := newTranscriptWith(user("u0"), ai("a0"))
		if tr.Regenerate(testSlide, 5) {
			t.Error("Regenerate(5) reported success")
		}
	})

	t.Run("user turn is left alone", func(t *testing.T) {
		tr := newTranscriptWith(user("u0"), ai("a0"), user("u1"), ai("a1"))
		before := tr.Turns(testSlide)
		if tr.Regenerate(testSlide, 2) {
			t.Error("Regenerate(2) reported success on a user turn")
		}
		if !reflect.DeepEqual(tr.Turns(testSlide), before) {
			t.Errorf("Turns = %+v, want %+v", tr.Turns(testSlide), before)
		}
	})
}

func TestDeletePair(t *testing.T) {
	tests := []struct {
		name    string
		turns   []model.Turn
		aiIndex int
		want    []model.Turn
		removed int
	}{
		{
			name:    "last pair",
			turns:   []model.Turn{user("u0"), ai("a0"), user("u1"), ai("a1")},
			aiIndex: 3,
			want:    []model.Turn{user("u0"), ai("a0")},
			removed: 2,
		},
		{
			name:    "first pair",
			turns:   []model.Turn{user("u0"), ai("a0"), user("u1"), ai("a1")},
			aiIndex: 1,
			want:    []model.Turn{user("u1"), ai("a1")},
			removed: 2,
		},
		{
			name:    "index zero removes one turn",
			turns:   []model.Turn{ai("a0"), user("u1"), ai("a1")},
			aiIndex: 0,
			want:    []model.Turn{user("u1"), ai("a1")},
			removed: 1,
		},
		{
			name:    "non-alternating keeps the preceding ai turn",
			turns:   []model.Turn{user("u0"), ai("a0"), ai("a0b"), user("u1"), ai("a1")},
			aiIndex: 2,
			want:    []model.Turn{user("u0"), ai("a0"), user("u1"), ai("a1")},
			removed: 1,
		},
		{
			name:    "out of range",
			turns:   []model.Turn{user("u0"), ai("a0")},
			aiIndex: 2,
			want:    []model.Turn{user("u0"), ai("a0")},
			removed: 0,
		},
		{
			name:    "negative",
			turns:   []model.Turn{user("u0"), ai("a0")},
			aiIndex: -1,
			want:    []model.Turn{user("u0"), ai("a0")},
			removed: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTranscriptWith(tt.turns...)
			if n := tr.DeletePair(testSlide, tt.aiIndex); n != tt.removed {
				t.Errorf("removed %d turns, want %d", n, tt.removed)
			}
			if got := tr.Turns(testSlide); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Turns = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClearAndSlideIDs(t *testing.T) {
	tr := NewTranscript()
	tr.Submit("b_p2", "x")
	tr.Submit("a_p1_0", "y")
	if got := tr.SlideIDs(); !reflect.DeepEqual(got, []string{"a_p1_0", "b_p2"}) {
		t.Errorf("SlideIDs = %v", got)
	}

	tr.Clear("b_p2")
	if tr.Len("b_p2") != 0 {
		t.Errorf("Len after Clear = %d", tr.Len("b_p2"))
	}
	if got := tr.SlideIDs(); !reflect.DeepEqual(got, []string{"a_p1_0"}) {
		t.Errorf("SlideIDs after Clear = %v", got)
	}
	if tr.Len("a_p1_0") != 2 {
		t.Error("Clear touched another slide")
	}
	tr.Clear("never-used")
}

func TestTurnsReturnsCopy(t *testing.T) {
	tr := newTranscriptWith(user("u0"))
	turns := tr.Turns(testSlide)
	turns[0].Text = "changed"
	if got, _ := tr.Turn(testSlide, 0); got.Text != "u0" {
		t.Error("Turns result aliases internal state")
	}
}
