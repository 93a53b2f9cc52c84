package practice

import (
	"slices"
	"sort"

	"github.com/pavelanni/ielts-coach/internal/model"
)

// TurnPatch carries the fields UpdateAt merges into a turn. Nil fields are
// left untouched.
type TurnPatch struct {
	Text     *string
	IsTyping *bool
}

// Patch builds a TurnPatch that sets both fields.
func Patch(text string, typing bool) TurnPatch {
	return TurnPatch{Text: &text, IsTyping: &typing}
}

// Transcript maps slide IDs to their ordered turns. It is not safe for
// concurrent use; Session serializes access.
type Transcript struct {
	turns map[string][]model.Turn
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{turns: make(map[string][]model.Turn)}
}

// Append pushes a turn to the end of a slide's sequence and returns its index.
func (t *Transcript) Append(slideID string, turn model.Turn) int {
	t.turns[slideID] = append(t.turns[slideID], turn)
	return len(t.turns[slideID]) - 1
}

// UpdateAt merges p into the turn at index. It reports false, and changes
// nothing, when index is out of range.
func (t *Transcript) UpdateAt(slideID string, index int, p TurnPatch) bool {
	turns := t.turns[slideID]
	if index < 0 || index >= len(turns) {
		return false
	}
	if p.Text != nil {
		turns[index].Text = *p.Text
	}
	if p.IsTyping != nil {
		turns[index].IsTyping = *p.IsTyping
	}
	return true
}

// Submit appends the user's answer followed by a typing AI placeholder and
// returns the placeholder's index.
func (t *Transcript) Submit(slideID, userText string) int {
	t.Append(slideID, model.Turn{Role: model.RoleUser, Text: userText})
	return t.Append(slideID, model.Turn{Role: model.RoleAI, IsTyping: true})
}

// Regenerate resets the AI turn at aiIndex to an empty typing placeholder.
// Index 0 has no preceding answer and is never reset, nor is a user turn.
func (t *Transcript) Regenerate(slideID string, aiIndex int) bool {
	turns := t.turns[slideID]
	if aiIndex <= 0 || aiIndex >= len(turns) || turns[aiIndex].Role != model.RoleAI {
		return false
	}
	return t.UpdateAt(slideID, aiIndex, Patch("", true))
}

// DeletePair removes the turn at aiIndex together with the answer that
// prompted it. The preceding turn is only removed when it is a user turn, so
// a transcript that stopped alternating never loses an unrelated turn.
// It returns the number of turns removed.
func (t *Transcript) DeletePair(slideID string, aiIndex int) int {
	turns := t.turns[slideID]
	if aiIndex < 0 || aiIndex >= len(turns) {
		return 0
	}
	start := aiIndex
	if aiIndex > 0 && turns[aiIndex-1].Role == model.RoleUser {
		start = aiIndex - 1
	}
	t.turns[slideID] = slices.Delete(turns, start, aiIndex+1)
	return aiIndex + 1 - start
}

// Clear empties a slide's sequence.
func (t *Transcript) Clear(slideID string) {
	if _, ok := t.turns[slideID]; ok {
		t.turns[slideID] = nil
	}
}

// Turns returns a copy of a slide's turns.
func (t *Transcript) Turns(slideID string) []model.Turn {
	return slices.Clone(t.turns[slideID])
}

// Turn returns the turn at index.
func (t *Transcript) Turn(slideID string, index int) (model.Turn, bool) {
	turns := t.turns[slideID]
	if index < 0 || index >= len(turns) {
		return model.Turn{}, false
	}
	return turns[index], true
}

// Len returns the number of turns for a slide.
func (t *Transcript) Len(slideID string) int {
	return len(t.turns[slideID])
}

// SlideIDs returns the IDs of slides with at least one turn, sorted.
func (t *Transcript) SlideIDs() []string {
	var ids []string
	for id, turns := range t.turns {
		if len(turns) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
