package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/ielts-coach/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestExchange(t *testing.T, s *Store, topicID, slideID, answer string) {
	t.Helper()
	err := s.LogExchange(context.Background(), model.Exchange{
		SessionID:  "sess-1",
		TopicID:    topicID,
		TopicTitle: "title " + topicID,
		SlideID:    slideID,
		Question:   "question for " + slideID,
		Answer:     answer,
		Feedback:   "feedback for " + answer,
	})
	if err != nil {
		t.Fatalf("LogExchange: %v", err)
	}
}

func TestWritingReviews(t *testing.T) {
	s := newTestStore(t)

	list, err := s.ListWritingReviews(0)
	if err != nil {
		t.Fatalf("ListWritingReviews: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}

	id, err := s.InsertWritingReview(model.WritingReview{
		Task:     model.WritingTask2,
		Topic:    "Should public transport be free?",
		Essay:    "Yes, because...",
		Analysis: "Band 6.5",
	})
	if err != nil {
		t.Fatalf("InsertWritingReview: %v", err)
	}
	r, err := s.GetWritingReview(id)
	if err != nil {
		t.Fatalf("GetWritingReview: %v", err)
	}
	if r.Task != model.WritingTask2 || r.Analysis != "Band 6.5" || r.Failed {
		t.Errorf("unexpected review: %+v", r)
	}
	if r.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	if _, err := s.InsertWritingReview(model.WritingReview{
		Task:      model.WritingTask1,
		Essay:     "The chart shows...",
		ImageMIME: "image/png",
		Analysis:  "Error analyzing writing. Please try again.",
		Failed:    true,
	}); err != nil {
		t.Fatalf("InsertWritingReview task1: %v", err)
	}

	list, err = s.ListWritingReviews(0)
	if err != nil {
		t.Fatalf("ListWritingReviews: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(list))
	}
	if list[0].Task != model.WritingTask1 || !list[0].Failed || list[0].ImageMIME != "image/png" {
		t.Errorf("newest review first expected, got %+v", list[0])
	}

	limited, err := s.ListWritingReviews(1)
	if err != nil {
		t.Fatalf("ListWritingReviews(1): %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 review with limit, got %d", len(limited))
	}

	if _, err := s.GetWritingReview(9999); err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}

func TestExchanges(t *testing.T) {
	s := newTestStore(t)

	insertTestExchange(t, s, "p1_work", "p1_work_p1_0", "I study law")
	insertTestExchange(t, s, "p2_gift", "p2_gift_p2", "A watch")
	insertTestExchange(t, s, "p1_work", "p1_work_p1_1", "Because I like it")

	count, err := s.ExchangeCount()
	if err != nil {
		t.Fatalf("ExchangeCount: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 exchanges, got %d", count)
	}

	all, err := s.ListExchanges("")
	if err != nil {
		t.Fatalf("ListExchanges: %v", err)
	}
	if len(all) != 3 || all[0].Answer != "I study law" || all[2].Answer != "Because I like it" {
		t.Errorf("unexpected exchanges: %+v", all)
	}

	work, err := s.ListExchanges("p1_work")
	if err != nil {
		t.Fatalf("ListExchanges(p1_work): %v", err)
	}
	if len(work) != 2 {
		t.Fatalf("expected 2 work exchanges, got %d", len(work))
	}
	for _, ex := range work {
		if ex.TopicID != "p1_work" || ex.SessionID != "sess-1" {
			t.Errorf("unexpected exchange: %+v", ex)
		}
	}
}

func TestSpeechCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := SpeechKey("Fenrir", "hello")
	if key == SpeechKey("Puck", "hello") || key == SpeechKey("Fenrir", "hello!") {
		t.Error("speech keys must differ by voice and text")
	}

	if _, ok, err := s.GetSpeech(ctx, key); err != nil || ok {
		t.Fatalf("GetSpeech on empty cache = ok %v, err %v", ok, err)
	}

	if err := s.PutSpeech(ctx, "Fenrir", "hello", "AAAA"); err != nil {
		t.Fatalf("PutSpeech: %v", err)
	}
	audio, ok, err := s.GetSpeech(ctx, key)
	if err != nil || !ok || audio != "AAAA" {
		t.Errorf("GetSpeech = %q, %v, %v", audio, ok, err)
	}

	if err := s.PutSpeech(ctx, "Fenrir", "hello", "BBBB"); err != nil {
		t.Fatalf("PutSpeech overwrite: %v", err)
	}
	audio, _, _ = s.GetSpeech(ctx, key)
	if audio != "BBBB" {
		t.Errorf("expected overwritten audio, got %q", audio)
	}

	n, err := s.PruneSpeech(ctx, time.Hour)
	if err != nil {
		t.Fatalf("PruneSpeech: %v", err)
	}
	if n != 0 {
		t.Errorf("fresh entry pruned: %d", n)
	}
	n, err = s.PruneSpeech(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("PruneSpeech: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned entry, got %d", n)
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetMetadata("missing")
	if err != nil || v != "" {
		t.Errorf("GetMetadata(missing) = %q, %v", v, err)
	}
	if err := s.SetMetadata("k", "v1"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := s.SetMetadata("k", "v2"); err != nil {
		t.Fatalf("SetMetadata upsert: %v", err)
	}
	if v, _ := s.GetMetadata("k"); v != "v2" {
		t.Errorf("expected v2, got %q", v)
	}

	if h, _ := s.PasscodeHash(); h != "" {
		t.Errorf("expected no passcode hash, got %q", h)
	}
	if err := s.SetPasscodeHash("$2a$10$hash"); err != nil {
		t.Fatalf("SetPasscodeHash: %v", err)
	}
	if h, _ := s.PasscodeHash(); h != "$2a$10$hash" {
		t.Errorf("PasscodeHash = %q", h)
	}
}

func TestAccessTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tok, err := s.GrantAccess(ctx)
	if err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}
	if len(tok.Token) != 64 {
		t.Errorf("expected 64-char hex token, got %d chars", len(tok.Token))
	}
	if got := tok.ExpiresAt.Sub(tok.CreatedAt); got != AccessTTL {
		t.Errorf("lifetime = %v, want %v", got, AccessTTL)
	}

	got, err := s.TouchAccess(ctx, tok.Token)
	if err != nil {
		t.Fatalf("TouchAccess: %v", err)
	}
	if got.Token != tok.Token || !got.CreatedAt.Equal(tok.CreatedAt) {
		t.Errorf("TouchAccess = %+v, want token %q created %v", got, tok.Token, tok.CreatedAt)
	}

	if _, err := s.TouchAccess(ctx, "nope"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("unknown token = %v, want ErrAccessDenied", err)
	}

	if err := s.RevokeAccess(ctx, tok.Token); err != nil {
		t.Fatalf("RevokeAccess: %v", err)
	}
	if _, err := s.TouchAccess(ctx, tok.Token); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("revoked token = %v, want ErrAccessDenied", err)
	}
	if err := s.RevokeAccess(ctx, tok.Token); err != nil {
		t.Errorf("second RevokeAccess: %v", err)
	}
}

func TestTouchAccessSlidesExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	soon := time.Now().UTC().Add(time.Hour).Unix()
	if _, err := s.db.Exec(
		`INSERT INTO access_tokens (token, created_at, expires_at) VALUES (?, ?, ?)`,
		"aging", time.Now().UTC().Add(-24*time.Hour).Unix(), soon,
	); err != nil {
		t.Fatalf("insert: %v", err)
	}
	tok, err := s.TouchAccess(ctx, "aging")
	if err != nil {
		t.Fatalf("TouchAccess: %v", err)
	}
	if tok.ExpiresAt.Unix() <= soon {
		t.Errorf("expiry not extended: %v", tok.ExpiresAt)
	}
}

func TestPruneAccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	live, err := s.GrantAccess(ctx)
	if err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}
	now := time.Now().UTC()
	for _, token := range []string{"old1", "old2"} {
		if _, err := s.db.Exec(
			`INSERT INTO access_tokens (token, created_at, expires_at) VALUES (?, ?, ?)`,
			token, now.Add(-48*time.Hour).Unix(), now.Add(-time.Hour).Unix(),
		); err != nil {
			t.Fatalf("insert expired: %v", err)
		}
	}
	if _, err := s.TouchAccess(ctx, "old1"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expired token = %v, want ErrAccessDenied", err)
	}

	n, err := s.PruneAccess(ctx)
	if err != nil {
		t.Fatalf("PruneAccess: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d tokens, want 2", n)
	}
	if _, err := s.TouchAccess(ctx, live.Token); err != nil {
		t.Errorf("live token after prune: %v", err)
	}
	if n, _ := s.PruneAccess(ctx); n != 0 {
		t.Errorf("second prune removed %d tokens", n)
	}
}

func TestExportStudy(t *testing.T) {
	s := newTestStore(t)

	empty, err := s.ExportStudy()
	if err != nil {
		t.Fatalf("ExportStudy: %v", err)
	}
	if empty.Exchanges == nil || empty.Writing == nil {
		t.Error("empty export should use empty slices, not nil")
	}

	insertTestExchange(t, s, "p1_work", "p1_work_p1_0", "answer")
	if _, err := s.InsertWritingReview(model.WritingReview{Task: model.WritingTask2, Essay: "e", Analysis: "a"}); err != nil {
		t.Fatalf("InsertWritingReview: %v", err)
	}

	exp, err := s.ExportStudy()
	if err != nil {
		t.Fatalf("ExportStudy: %v", err)
	}
	if len(exp.Exchanges) != 1 || len(exp.Writing) != 1 {
		t.Errorf("export = %d exchanges, %d reviews", len(exp.Exchanges), len(exp.Writing))
	}
	if exp.ExportedAt.IsZero() {
		t.Error("ExportedAt not set")
	}
}
