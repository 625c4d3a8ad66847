package storage

import (
	"context"
	"errors"
	"time"

	"github.com/agenthands/attendance/internal/core/model"
)

var ErrNotFound = errors.New("not found")

// Store persists students, courses, presence state and captured signatures.
type Store interface {
	AddStudent(ctx context.Context, s *model.Student) error
	AddCourse(ctx context.Context, c *model.Course) error
	Enroll(ctx context.Context, studentID, courseID int64) error

	Roster(ctx context.Context, courseID int64) ([]model.RosterEntry, error)
	State(ctx context.Context, studentID, courseID int64) (*model.StudentState, error)
	MarkPresent(ctx context.Context, studentID, courseID, signatureID int64, at time.Time) error

	SaveSignature(ctx context.Context, sig *model.Signature) error
	// RecordPresence saves sig and marks the student present with it
	// atomically. On error nothing is stored and sig.ID is left zero.
	RecordPresence(ctx context.Context, studentID, courseID int64, sig *model.Signature, at time.Time) error
	Signature(ctx context.Context, id int64) (*model.Signature, error)
	// CourseSignatures returns a course's signatures ordered by descending
	// suspicion score, then id.
	CourseSignatures(ctx context.Context, courseID int64) ([]model.Signature, error)

	Close() error
}
