package model

import "time"

// StudyExport is the top-level JSON structure for study history export.
type StudyExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Exchanges  []Exchange      `json:"exchanges"`
	Writing    []WritingReview `json:"writing"`
}
