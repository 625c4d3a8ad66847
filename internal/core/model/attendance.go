package model

import "time"

const (
	StateAbsent  = 0
	StatePresent = 1
)

type Student struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

type Course struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type StudentState struct {
	StudentID   int64      `json:"student_id"`
	CourseID    int64      `json:"course_id"`
	State       int        `json:"state"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	SignatureID *int64     `json:"signature_id,omitempty"`
}

// RosterEntry is a student joined with its state for one course.
type RosterEntry struct {
	Student
	StudentState
}

// Upload is a raw signature image submitted by a client.
type Upload struct {
	Filename string
	Data     []byte
}

// PresenceReport is returned after a student is marked present.
type PresenceReport struct {
	Signature  Signature         `json:"signature"`
	Validation ValidationResult  `json:"validation"`
	Duplicates []DuplicateResult `json:"duplicates"`
}
