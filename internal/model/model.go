package model

import (
	"context"
	"time"
)

// Category groups topics the way the question bank tabs do.
type Category string

const (
	CategoryPart1  Category = "part1"
	CategoryEvents Category = "events"
	CategoryThings Category = "things"
	CategoryPlaces Category = "places"
	CategoryPeople Category = "people"
)

// Categories lists every category in tab order.
var Categories = []Category{CategoryPart1, CategoryEvents, CategoryThings, CategoryPlaces, CategoryPeople}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Topic is one entry of the question bank. Exactly one of Questions
// (Part 1) or Part2 (Part 2/3) is set.
type Topic struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	IsNew        bool     `json:"is_new,omitempty"`
	Questions    []string `json:"questions,omitempty"`
	Part2        string   `json:"part2,omitempty"`
	Part2Bullets []string `json:"part2_bullets,omitempty"`
	Part3        []string `json:"part3,omitempty"`
}

// IsPart1 reports whether the topic is a Part 1 topic.
func (t Topic) IsPart1() bool {
	return len(t.Questions) > 0
}

// SlideType identifies the kind of prompt a slide carries.
type SlideType string

const (
	SlidePart1     SlideType = "part1"
	SlidePart2Card SlideType = "part2card"
	SlidePart3     SlideType = "part3"
)

// Slide is a single prompt of a practice deck.
type Slide struct {
	ID      string    `json:"id"`
	Type    SlideType `json:"type"`
	Text    string    `json:"text"`
	Bullets []string  `json:"bullets,omitempty"`
}

// Role represents a transcript turn role.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Turn is one message of a per-slide transcript.
type Turn struct {
	Role     Role   `json:"role"`
	Text     string `json:"text"`
	IsTyping bool   `json:"is_typing,omitempty"`
}

// ParsedResponse is the display split of an AI feedback turn.
type ParsedResponse struct {
	Feedback string `json:"feedback"`
	Band7    string `json:"band7"`
	Band8    string `json:"band8"`
}

// WritingTask selects which writing task is analyzed.
type WritingTask string

const (
	WritingTask1 WritingTask = "task1"
	WritingTask2 WritingTask = "task2"
)

// WritingReview is a stored writing analysis.
type WritingReview struct {
	ID        int64       `json:"id"`
	Task      WritingTask `json:"task"`
	Topic     string      `json:"topic"`
	Essay     string      `json:"essay"`
	ImageMIME string      `json:"image_mime,omitempty"`
	Analysis  string      `json:"analysis"`
	Failed    bool        `json:"failed"`
	CreatedAt time.Time   `json:"created_at"`
}

// Exchange is a completed answer/feedback pair recorded for export.
type Exchange struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	TopicID    string    `json:"topic_id"`
	TopicTitle string    `json:"topic_title"`
	SlideID    string    `json:"slide_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Feedback   string    `json:"feedback"`
	CreatedAt  time.Time `json:"created_at"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	BasePath      string        // URL prefix for sub-path deployments (e.g. "/ielts")
	SecureCookies bool          // Set Secure flag on cookies (disable for local dev)
	Voice         string        // Speech voice name
	SessionTTL    time.Duration // Idle lifetime of a practice session
	CORSOrigins   []string      // Allowed origins for the JSON API
	Passcode      bool          // Whether a site passcode is required
}

// AccessToken is the cookie value handed out after a passcode login.
type AccessToken struct {
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
