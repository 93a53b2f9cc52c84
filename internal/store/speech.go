package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"
)

// SpeechKey derives the cache key for a voice and text pair.
func SpeechKey(voice, text string) string {
	h := sha256.Sum256([]byte(voice + ":" + text))
	return hex.EncodeToString(h[:])
}

// GetSpeech returns cached base64 audio for key. ok is false on a miss.
func (s *Store) GetSpeech(ctx context.Context, key string) (audio string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT audio FROM speech_cache WHERE key = ?`, key).Scan(&audio)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return audio, true, nil
}

// PutSpeech caches base64 audio for a voice and text pair.
func (s *Store) PutSpeech(ctx context.Context, voice, text, audio string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO speech_cache (key, voice, text, audio, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET audio = excluded.audio, created_at = excluded.created_at`,
		SpeechKey(voice, text), voice, text, audio, time.Now().UTC(),
	)
	return err
}

// PruneSpeech drops cache entries older than maxAge and returns how many.
func (s *Store) PruneSpeech(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM speech_cache WHERE created_at < ?`, time.Now().UTC().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
