package practice

import (
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/ielts-coach/internal/model"
)

func TestSessionEvents(t *testing.T) {
	sess := NewSession()
	events, unsubscribe := sess.Subscribe()

	aiIndex, err := sess.Submit("s", "hello")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	sess.UpdateAt("s", aiIndex, Patch("done", false))
	sess.finishGenerating("s")
	if _, err := sess.DeletePair("s", aiIndex); err != nil {
		t.Fatalf("DeletePair: %v", err)
	}
	if err := sess.Clear("s"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	want := []TurnEvent{
		{SlideID: "s", Kind: EventAppend, Index: 0, Turn: model.Turn{Role: model.RoleUser, Text: "hello"}},
		{SlideID: "s", Kind: EventAppend, Index: 1, Turn: model.Turn{Role: model.RoleAI, IsTyping: true}},
		{SlideID: "s", Kind: EventUpdate, Index: 1, Turn: model.Turn{Role: model.RoleAI, Text: "done"}},
		{SlideID: "s", Kind: EventIdle},
		{SlideID: "s", Kind: EventRemove, Index: 0, Count: 2},
		{SlideID: "s", Kind: EventClear},
	}
	for i, w := range want {
		select {
		case got := <-events:
			if got != w {
				t.Errorf("event %d = %+v, want %+v", i, got, w)
			}
		default:
			t.Fatalf("missing event %d", i)
		}
	}

	unsubscribe()
	unsubscribe()
	if _, ok := <-events; ok {
		t.Error("channel open after unsubscribe")
	}
	sess.Submit("s", "after")
}

func TestSessionSlowSubscriberDoesNotBlock(t *testing.T) {
	sess := NewSession()
	_, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer*2; i++ {
		sess.UpdateAt("none", 0, Patch("x", false))
		aiIndex, _ := sess.Submit("s", "x")
		sess.UpdateAt("s", aiIndex, Patch("y", false))
		sess.finishGenerating("s")
	}
	if got := len(sess.Turns("s")); got != subscriberBuffer*4 {
		t.Errorf("got %d turns, want %d", got, subscriberBuffer*4)
	}
}

func TestSessionRegenerateErrors(t *testing.T) {
	sess := NewSession()
	if err := sess.Regenerate("s", 1); !errors.Is(err, ErrNoAnswer) {
		t.Errorf("Regenerate on empty slide = %v, want ErrNoAnswer", err)
	}
	aiIndex, _ := sess.Submit("s", "x")
	if err := sess.Regenerate("s", aiIndex); !errors.Is(err, ErrGenerating) {
		t.Errorf("Regenerate while generating = %v, want ErrGenerating", err)
	}
	sess.finishGenerating("s")
	aiIndex, _ = sess.Submit("s", "y")
	sess.finishGenerating("s")
	if err := sess.Regenerate("s", aiIndex-1); !errors.Is(err, ErrNoAnswer) {
		t.Errorf("Regenerate on user turn = %v, want ErrNoAnswer", err)
	}
	if sess.Generating("s") {
		t.Error("rejected Regenerate marked the slide generating")
	}
	if err := sess.Regenerate("s", aiIndex); err != nil {
		t.Errorf("Regenerate: %v", err)
	}
	if !sess.Generating("s") {
		t.Error("Regenerate should mark the slide generating")
	}
}

func TestSessionPosition(t *testing.T) {
	sess := NewSession()
	sess.SetPosition("p1_work", 2)
	if id, i := sess.Position(); id != "p1_work" || i != 2 {
		t.Errorf("Position = %q, %d", id, i)
	}
}

func TestManager(t *testing.T) {
	m := NewManager(time.Hour)
	a := m.Create()
	b := m.Create()
	if a.ID == b.ID {
		t.Fatal("session IDs collide")
	}
	if got, ok := m.Get(a.ID); !ok || got != a {
		t.Error("Get did not return the created session")
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get found a missing session")
	}

	if n := m.Sweep(time.Now()); n != 0 {
		t.Errorf("Sweep removed %d fresh sessions", n)
	}
	if n := m.Sweep(time.Now().Add(2 * time.Hour)); n != 2 {
		t.Errorf("Sweep removed %d, want 2", n)
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d after sweep", m.Len())
	}

	m.Create()
	noTTL := NewManager(0)
	noTTL.Create()
	if n := noTTL.Sweep(time.Now().Add(1000 * time.Hour)); n != 0 {
		t.Error("zero TTL should never expire sessions")
	}
}

func TestPlayback(t *testing.T) {
	var p Playback
	if p.Current() != "" {
		t.Error("new playback should be idle")
	}
	if !p.Start("s_0") {
		t.Error("Start on idle slot returned false")
	}
	if p.Start("s_0") {
		t.Error("Start on the playing id should return false")
	}
	if !p.Start("s_1") {
		t.Error("Start on a different id should cut over")
	}
	p.Finish("s_0")
	if p.Current() != "s_1" {
		t.Errorf("Finish of a stale id cleared the slot: %q", p.Current())
	}
	p.Finish("s_1")
	if p.Current() != "" {
		t.Errorf("Current after Finish = %q", p.Current())
	}
	if p.Start("") {
		t.Error("empty id should not start")
	}
}
