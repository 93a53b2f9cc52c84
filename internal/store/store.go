package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/ielts-coach/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS writing_reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task TEXT NOT NULL,
		topic TEXT NOT NULL DEFAULT '',
		essay TEXT NOT NULL,
		image_mime TEXT NOT NULL DEFAULT '',
		analysis TEXT NOT NULL DEFAULT '',
		failed INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		topic_id TEXT NOT NULL,
		topic_title TEXT NOT NULL DEFAULT '',
		slide_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		feedback TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_exchanges_topic ON exchanges(topic_id);

	CREATE TABLE IF NOT EXISTS speech_cache (
		key TEXT PRIMARY KEY,
		voice TEXT NOT NULL,
		text TEXT NOT NULL,
		audio TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	DROP TABLE IF EXISTS access_sessions;

	CREATE TABLE IF NOT EXISTS access_tokens (
		token TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_access_tokens_expiry ON access_tokens(expires_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertWritingReview stores a writing analysis and returns its ID.
func (s *Store) InsertWritingReview(r model.WritingReview) (int64, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO writing_reviews (task, topic, essay, image_mime, analysis, failed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Task, r.Topic, r.Essay, r.ImageMIME, r.Analysis, r.Failed, r.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetWritingReview returns a writing review by ID.
func (s *Store) GetWritingReview(id int64) (model.WritingReview, error) {
	var r model.WritingReview
	err := s.db.QueryRow(
		`SELECT id, task, topic, essay, image_mime, analysis, failed, created_at
		 FROM writing_reviews WHERE id = ?`, id,
	).Scan(&r.ID, &r.Task, &r.Topic, &r.Essay, &r.ImageMIME, &r.Analysis, &r.Failed, &r.CreatedAt)
	return r, err
}

// ListWritingReviews returns the newest reviews first. limit <= 0 means all.
func (s *Store) ListWritingReviews(limit int) ([]model.WritingReview, error) {
	query := `SELECT id, task, topic, essay, image_mime, analysis, failed, created_at
		 FROM writing_reviews ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reviews []model.WritingReview
	for rows.Next() {
		var r model.WritingReview
		if err := rows.Scan(&r.ID, &r.Task, &r.Topic, &r.Essay, &r.ImageMIME, &r.Analysis, &r.Failed, &r.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// LogExchange records a completed answer and its feedback.
func (s *Store) LogExchange(ctx context.Context, ex model.Exchange) error {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (session_id, topic_id, topic_title, slide_id, question, answer, feedback, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.SessionID, ex.TopicID, ex.TopicTitle, ex.SlideID, ex.Question, ex.Answer, ex.Feedback, ex.CreatedAt,
	)
	return err
}

// ListExchanges returns logged exchanges in insertion order. An empty
// topicID returns every topic.
func (s *Store) ListExchanges(topicID string) ([]model.Exchange, error) {
	query := `SELECT id, session_id, topic_id, topic_title, slide_id, question, answer, feedback, created_at
		 FROM exchanges`
	var args []any
	if topicID != "" {
		query += ` WHERE topic_id = ?`
		args = append(args, topicID)
	}
	query += ` ORDER BY id`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Exchange
	for rows.Next() {
		var ex model.Exchange
		if err := rows.Scan(&ex.ID, &ex.SessionID, &ex.TopicID, &ex.TopicTitle, &ex.SlideID, &ex.Question, &ex.Answer, &ex.Feedback, &ex.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// ExchangeCount returns the number of logged exchanges.
func (s *Store) ExchangeCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM exchanges`).Scan(&count)
	return count, err
}
