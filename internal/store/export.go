package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/ielts-coach/internal/model"
)

// ExportStudy collects every logged exchange and writing review.
func (s *Store) ExportStudy() (model.StudyExport, error) {
	exchanges, err := s.ListExchanges("")
	if err != nil {
		return model.StudyExport{}, fmt.Errorf("list exchanges: %w", err)
	}
	reviews, err := s.ListWritingReviews(0)
	if err != nil {
		return model.StudyExport{}, fmt.Errorf("list writing reviews: %w", err)
	}
	if exchanges == nil {
		exchanges = []model.Exchange{}
	}
	if reviews == nil {
		reviews = []model.WritingReview{}
	}
	return model.StudyExport{
		ExportedAt: time.Now().UTC(),
		Exchanges:  exchanges,
		Writing:    reviews,
	}, nil
}
