package practice

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/ielts-coach/internal/model"
)

var (
	// ErrGenerating is returned when a slide already has feedback in flight.
	ErrGenerating = errors.New("feedback is still being generated for this slide")
	// ErrUnknownSlide is returned for a slide ID that is not in the topic's deck.
	ErrUnknownSlide = errors.New("unknown slide")
	// ErrNoAnswer is returned when regeneration targets a turn with nothing before it.
	ErrNoAnswer = errors.New("no answer precedes this turn")
)

// EventKind says how a transcript changed.
type EventKind string

const (
	EventAppend EventKind = "append"
	EventUpdate EventKind = "update"
	EventRemove EventKind = "remove"
	EventClear  EventKind = "clear"
	// EventIdle reports that a slide's generation has ended.
	EventIdle EventKind = "idle"
)

// TurnEvent describes one transcript mutation. For EventRemove, Index is the
// first removed position and Count the number of turns removed.
type TurnEvent struct {
	SlideID string     `json:"slide_id"`
	Kind    EventKind  `json:"kind"`
	Index   int        `json:"index"`
	Count   int        `json:"count,omitempty"`
	Turn    model.Turn `json:"turn"`
}

const subscriberBuffer = 64

// Session is one learner's practice state: the transcript, which slides
// have feedback in flight, the audio playback slot, and where they are in
// the deck. All methods are safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	Playback *Playback

	mu         sync.Mutex
	transcript *Transcript
	generating map[string]bool
	subs       map[chan TurnEvent]struct{}
	lastSeen   time.Time
	topicID    string
	index      int
}

// NewSession creates a session with a random ID.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		Playback:   &Playback{},
		transcript: NewTranscript(),
		generating: make(map[string]bool),
		subs:       make(map[chan TurnEvent]struct{}),
		lastSeen:   now,
	}
}

// Touch records activity for idle expiry.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns the time of the last recorded activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SetPosition records the topic and slide index the learner is viewing.
func (s *Session) SetPosition(topicID string, index int) {
	s.mu.Lock()
	s.topicID, s.index = topicID, index
	s.mu.Unlock()
}

// Position returns the topic and slide index last recorded.
func (s *Session) Position() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topicID, s.index
}

// Submit records an answer and a typing placeholder, marks the slide as
// generating, and returns the placeholder index.
func (s *Session) Submit(slideID, text string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating[slideID] {
		return 0, ErrGenerating
	}
	aiIndex := s.transcript.Submit(slideID, text)
	s.generating[slideID] = true
	s.publish(TurnEvent{SlideID: slideID, Kind: EventAppend, Index: aiIndex - 1, Turn: model.Turn{Role: model.RoleUser, Text: text}})
	s.publish(TurnEvent{SlideID: slideID, Kind: EventAppend, Index: aiIndex, Turn: model.Turn{Role: model.RoleAI, IsTyping: true}})
	return aiIndex, nil
}

// Regenerate resets the AI turn at aiIndex to a typing placeholder and marks
// the slide as generating. Out-of-range indices and user turns return
// ErrNoAnswer.
func (s *Session) Regenerate(slideID string, aiIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating[slideID] {
		return ErrGenerating
	}
	if !s.transcript.Regenerate(slideID, aiIndex) {
		return ErrNoAnswer
	}
	s.generating[slideID] = true
	s.publishTurn(slideID, aiIndex)
	return nil
}

// UpdateAt merges p into a turn and notifies subscribers. Out-of-range
// indices are ignored.
func (s *Session) UpdateAt(slideID string, index int, p TurnPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.transcript.UpdateAt(slideID, index, p) {
		return false
	}
	s.publishTurn(slideID, index)
	return true
}

// DeletePair removes an AI turn and the answer before it.
func (s *Session) DeletePair(slideID string, aiIndex int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating[slideID] {
		return 0, ErrGenerating
	}
	n := s.transcript.DeletePair(slideID, aiIndex)
	if n > 0 {
		s.publish(TurnEvent{SlideID: slideID, Kind: EventRemove, Index: aiIndex + 1 - n, Count: n})
	}
	return n, nil
}

// Clear empties a slide's transcript.
func (s *Session) Clear(slideID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating[slideID] {
		return ErrGenerating
	}
	s.transcript.Clear(slideID)
	s.publish(TurnEvent{SlideID: slideID, Kind: EventClear})
	return nil
}

// Turns returns a copy of a slide's transcript.
func (s *Session) Turns(slideID string) []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Turns(slideID)
}

// Generating reports whether the slide has feedback in flight.
func (s *Session) Generating(slideID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating[slideID]
}

// SlideIDs lists slides that have any turns.
func (s *Session) SlideIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.SlideIDs()
}

func (s *Session) finishGenerating(slideID string) {
	s.mu.Lock()
	delete(s.generating, slideID)
	s.publish(TurnEvent{SlideID: slideID, Kind: EventIdle})
	s.mu.Unlock()
}

// Subscribe returns a channel of transcript events and a function that
// unsubscribes and closes it. Slow subscribers miss events rather than
// block mutations.
func (s *Session) Subscribe() (<-chan TurnEvent, func()) {
	ch := make(chan TurnEvent, subscriberBuffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) publishTurn(slideID string, index int) {
	turn, ok := s.transcript.Turn(slideID, index)
	if !ok {
		return
	}
	s.publish(TurnEvent{SlideID: slideID, Kind: EventUpdate, Index: index, Turn: turn})
}

// publish must be called with s.mu held.
func (s *Session) publish(ev TurnEvent) {
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Manager owns the live sessions and expires idle ones.
type Manager struct {
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions expire after ttl of inactivity.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{ttl: ttl, sessions: make(map[string]*Session)}
}

// Get returns the live session with id, touching it.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	if m.ttl > 0 && time.Since(s.LastSeen()) > m.ttl {
		m.Remove(id)
		return nil, false
	}
	s.Touch()
	return s, true
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	s := NewSession()
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Remove forgets a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Sweep(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastSeen()) > m.ttl {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Sweep(now); n > 0 {
				slog.Info("expired practice sessions", "count", n, "remaining", m.Len())
			}
		}
	}
}
