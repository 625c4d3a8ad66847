package model

import (
	"fmt"
	"time"
)

type Signature struct {
	ID             int64      `json:"id"`
	Hash           string     `json:"hash"`
	SuspicionScore float64    `json:"suspicion_score"`
	Features       []int      `json:"features"`
	CapturedAt     *time.Time `json:"captured_at,omitempty"`
	StudentID      *int64     `json:"student_id,omitempty"`
	CourseID       int64      `json:"course_id,omitempty"`
	Path           string     `json:"path,omitempty"`
}

// CacheKey identifies a signature for the validation cache.
func (s Signature) CacheKey() string {
	return fmt.Sprintf("%d_%s", s.ID, s.Hash)
}

type DuplicateResult struct {
	Original    int     `json:"original"`  // Position of the earlier signature
	Duplicate   int     `json:"duplicate"` // Position of the later signature
	OriginalID  int64   `json:"original_id"`
	DuplicateID int64   `json:"duplicate_id"`
	Similarity  float64 `json:"similarity"`
}

type ValidationResult struct {
	IsValid    bool    `json:"is_valid"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}
