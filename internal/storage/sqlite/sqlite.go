package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agenthands/attendance/internal/core/model"
	"github.com/agenthands/attendance/internal/storage"
)

// SQLiteStorage implements storage.Store on a single SQLite file.
type SQLiteStorage struct {
	db *sql.DB
}

var _ storage.Store = (*SQLiteStorage)(nil)

// New opens (creating if needed) the database at path and ensures the schema.
func New(path string) (*SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) AddStudent(ctx context.Context, st *model.Student) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO students (first_name, last_name, email) VALUES (?, ?, ?)`,
		st.FirstName, st.LastName, st.Email)
	if err != nil {
		return fmt.Errorf("failed to insert student: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read student id: %w", err)
	}
	st.ID = id
	return nil
}

func (s *SQLiteStorage) AddCourse(ctx context.Context, c *model.Course) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO courses (name) VALUES (?)`, c.Name)
	if err != nil {
		return fmt.Errorf("failed to insert course: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read course id: %w", err)
	}
	c.ID = id
	return nil
}

// Enroll creates an absent state row for the student in the course. It is a
// no-op if the student is already enrolled.
func (s *SQLiteStorage) Enroll(ctx context.Context, studentID, courseID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO student_states (student_id, course_id, state) VALUES (?, ?, ?)`,
		studentID, courseID, model.StateAbsent)
	if err != nil {
		return fmt.Errorf("failed to enroll student %d in course %d: %w", studentID, courseID, err)
	}
	return nil
}

func (s *SQLiteStorage) Roster(ctx context.Context, courseID int64) ([]model.RosterEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.first_name, s.last_name, s.email,
		       st.course_id, st.state, st.timestamp, st.signature_id
		FROM students s
		JOIN student_states st ON s.id = st.student_id
		WHERE st.course_id = ?
		ORDER BY s.id
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	roster := []model.RosterEntry{}
	for rows.Next() {
		var e model.RosterEntry
		var ts sql.NullTime
		var sigID sql.NullInt64
		if err := rows.Scan(&e.Student.ID, &e.FirstName, &e.LastName, &e.Email,
			&e.CourseID, &e.State, &ts, &sigID); err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		e.StudentID = e.Student.ID
		e.Timestamp = timePtr(ts)
		e.SignatureID = int64Ptr(sigID)
		roster = append(roster, e)
	}
	return roster, rows.Err()
}

func (s *SQLiteStorage) State(ctx context.Context, studentID, courseID int64) (*model.StudentState, error) {
	st := model.StudentState{StudentID: studentID, CourseID: courseID}
	var ts sql.NullTime
	var sigID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT state, timestamp, signature_id FROM student_states WHERE student_id = ? AND course_id = ?`,
		studentID, courseID).Scan(&st.State, &ts, &sigID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("state for student %d in course %d: %w", studentID, courseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query state: %w", err)
	}
	st.Timestamp = timePtr(ts)
	st.SignatureID = int64Ptr(sigID)
	return &st, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLiteStorage) MarkPresent(ctx context.Context, studentID, courseID, signatureID int64, at time.Time) error {
	return markPresent(ctx, s.db, studentID, courseID, signatureID, at)
}

func (s *SQLiteStorage) SaveSignature(ctx context.Context, sig *model.Signature) error {
	return insertSignature(ctx, s.db, sig)
}

// RecordPresence stores sig and marks the student present with it in one
// transaction. Nothing is written when the student is not enrolled.
func (s *SQLiteStorage) RecordPresence(ctx context.Context, studentID, courseID int64, sig *model.Signature, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertSignature(ctx, tx, sig); err != nil {
		sig.ID = 0
		return err
	}
	if err := markPresent(ctx, tx, studentID, courseID, sig.ID, at); err != nil {
		sig.ID = 0
		return err
	}
	if err := tx.Commit(); err != nil {
		sig.ID = 0
		return fmt.Errorf("failed to commit presence: %w", err)
	}
	return nil
}

func markPresent(ctx context.Context, db execer, studentID, courseID, signatureID int64, at time.Time) error {
	res, err := db.ExecContext(ctx,
		`UPDATE student_states SET state = ?, timestamp = ?, signature_id = ? WHERE student_id = ? AND course_id = ?`,
		model.StatePresent, at.UTC(), signatureID, studentID, courseID)
	if err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("student %d is not enrolled in course %d: %w", studentID, courseID, storage.ErrNotFound)
	}
	return nil
}

func insertSignature(ctx context.Context, db execer, sig *model.Signature) error {
	features, err := json.Marshal(sig.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	var capturedAt interface{}
	if sig.CapturedAt != nil {
		capturedAt = sig.CapturedAt.UTC()
	}
	var studentID interface{}
	if sig.StudentID != nil {
		studentID = *sig.StudentID
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO signatures (student_id, course_id, hash, suspicion_score, features, path, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, studentID, sig.CourseID, sig.Hash, sig.SuspicionScore, string(features), sig.Path, capturedAt)
	if err != nil {
		return fmt.Errorf("failed to insert signature: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read signature id: %w", err)
	}
	sig.ID = id
	return nil
}

const selectSignature = `
	SELECT id, student_id, course_id, hash, suspicion_score, features, path, captured_at
	FROM signatures
`

func (s *SQLiteStorage) Signature(ctx context.Context, id int64) (*model.Signature, error) {
	row := s.db.QueryRowContext(ctx, selectSignature+` WHERE id = ?`, id)
	sig, err := scanSignature(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("signature %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return sig, nil
}

func (s *SQLiteStorage) CourseSignatures(ctx context.Context, courseID int64) ([]model.Signature, error) {
	rows, err := s.db.QueryContext(ctx,
		selectSignature+` WHERE course_id = ? ORDER BY suspicion_score DESC, id ASC`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query signatures: %w", err)
	}
	defer rows.Close()

	sigs := []model.Signature{}
	for rows.Next() {
		sig, err := scanSignature(rows)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, *sig)
	}
	return sigs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSignature(row scanner) (*model.Signature, error) {
	var sig model.Signature
	var studentID sql.NullInt64
	var features string
	var capturedAt sql.NullTime
	if err := row.Scan(&sig.ID, &studentID, &sig.CourseID, &sig.Hash, &sig.SuspicionScore,
		&features, &sig.Path, &capturedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan signature: %w", err)
	}
	if err := json.Unmarshal([]byte(features), &sig.Features); err != nil {
		return nil, fmt.Errorf("failed to decode features for signature %d: %w", sig.ID, err)
	}
	sig.StudentID = int64Ptr(studentID)
	sig.CapturedAt = timePtr(capturedAt)
	return &sig, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
