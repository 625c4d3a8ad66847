package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/attendance/internal/core/model"
)

// Recorder mirrors signatures and their resemblance links into the graph so
// investigators can walk chains of students sharing one signature.
type Recorder struct {
	Driver GraphDriver
	Now    func() time.Time
}

func NewRecorder(d GraphDriver) *Recorder {
	return &Recorder{
		Driver: d,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *Recorder) RecordSignature(ctx context.Context, sig model.Signature) error {
	_, err := r.Driver.ExecuteQuery(ctx, SaveSignatureNodeQuery, map[string]interface{}{
		"id":              sig.ID,
		"hash":            sig.Hash,
		"course_id":       sig.CourseID,
		"suspicion_score": sig.SuspicionScore,
	})
	if err != nil {
		return fmt.Errorf("failed to save signature node %d: %w", sig.ID, err)
	}

	if sig.StudentID == nil {
		return nil
	}
	_, err = r.Driver.ExecuteQuery(ctx, SaveSignedEdgeQuery, map[string]interface{}{
		"student_id":   *sig.StudentID,
		"signature_id": sig.ID,
		"course_id":    sig.CourseID,
	})
	if err != nil {
		return fmt.Errorf("failed to link student %d to signature %d: %w", *sig.StudentID, sig.ID, err)
	}
	return nil
}

func (r *Recorder) RecordDuplicates(ctx context.Context, dups []model.DuplicateResult) error {
	detectedAt := r.Now()
	for _, d := range dups {
		_, err := r.Driver.ExecuteQuery(ctx, SaveResemblesEdgeQuery, map[string]interface{}{
			"original_id":  d.OriginalID,
			"duplicate_id": d.DuplicateID,
			"similarity":   d.Similarity,
			"detected_at":  detectedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to link signatures %d and %d: %w", d.OriginalID, d.DuplicateID, err)
		}
	}
	return nil
}

type SharedSigner struct {
	StudentID  int64   `json:"student_id"`
	Similarity float64 `json:"similarity"`
}

// SharedSigners lists students whose signatures resemble one of studentID's.
func (r *Recorder) SharedSigners(ctx context.Context, studentID int64) ([]SharedSigner, error) {
	res, err := r.Driver.ExecuteQuery(ctx, GetSharedSignersQuery, map[string]interface{}{
		"student_id": studentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query shared signers: %w", err)
	}

	signers := []SharedSigner{}
	for _, rec := range res.Records {
		id, _ := rec.Get("student_id")
		sim, _ := rec.Get("similarity")
		s := SharedSigner{}
		if v, ok := id.(int64); ok {
			s.StudentID = v
		}
		if v, ok := sim.(float64); ok {
			s.Similarity = v
		}
		signers = append(signers, s)
	}
	return signers, nil
}
