package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/attendance/internal/core/dedupe"
	"github.com/agenthands/attendance/internal/core/imaging"
	"github.com/agenthands/attendance/internal/core/model"
	"github.com/agenthands/attendance/internal/core/rings"
	"github.com/agenthands/attendance/internal/core/similarity"
	"github.com/agenthands/attendance/internal/core/suspicion"
	"github.com/agenthands/attendance/internal/core/validation"
	"github.com/agenthands/attendance/internal/driver"
	"github.com/agenthands/attendance/internal/storage"
)

var (
	ErrNotFound         = storage.ErrNotFound
	ErrInvalidFile      = errors.New("invalid file provided")
	ErrInvalidSignature = errors.New("invalid signature color")
	ErrGraphDisabled    = errors.New("graph recorder is not configured")
)

// Recorder receives signatures and duplicate links for fraud investigation.
type Recorder interface {
	RecordSignature(ctx context.Context, sig model.Signature) error
	RecordDuplicates(ctx context.Context, dups []model.DuplicateResult) error
	SharedSigners(ctx context.Context, studentID int64) ([]driver.SharedSigner, error)
}

type ImagingOptions struct {
	Width     int
	Height    int
	Levels    int
	Tolerance uint8
	MaxPixels int // 0 disables the limit
}

type Attendance struct {
	Store        storage.Store
	Cache        *validation.Cache
	Scanner      *dedupe.Scanner
	RingDetector rings.Detector
	Recorder     Recorder // optional

	Imaging            ImagingOptions
	StorageDir         string
	SuspicionThreshold float64

	Now             func() time.Time
	FileIDGenerator func() string
}

func NewAttendance(store storage.Store, cache *validation.Cache, scanner *dedupe.Scanner, opts ImagingOptions, storageDir string) *Attendance {
	return &Attendance{
		Store:              store,
		Cache:              cache,
		Scanner:            scanner,
		RingDetector:       rings.NewComponentDetector(),
		Imaging:            opts,
		StorageDir:         storageDir,
		SuspicionThreshold: suspicion.DefaultThreshold,
		Now:                func() time.Time { return time.Now().UTC() },
		FileIDGenerator:    func() string { return uuid.New().String() },
	}
}

func (a *Attendance) Roster(ctx context.Context, courseID int64) ([]model.RosterEntry, error) {
	return a.Store.Roster(ctx, courseID)
}

func (a *Attendance) State(ctx context.Context, studentID, courseID int64) (*model.StudentState, error) {
	return a.Store.State(ctx, studentID, courseID)
}

// MarkPresent stores the uploaded signature, scores it against the other
// students' signatures for the course and marks the student present. The
// verdict and any near-duplicates are reported for review; they do not
// block attendance.
func (a *Attendance) MarkPresent(ctx context.Context, studentID, courseID int64, upload model.Upload) (*model.PresenceReport, error) {
	features, hash, err := a.prepare(upload)
	if err != nil {
		return nil, err
	}

	if _, err := a.Store.State(ctx, studentID, courseID); err != nil {
		return nil, err
	}

	existing, err := a.Store.CourseSignatures(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course signatures: %w", err)
	}

	now := a.Now()
	sig := model.Signature{
		Hash:       hash,
		Features:   features,
		CapturedAt: &now,
		StudentID:  &studentID,
		CourseID:   courseID,
	}
	sig.SuspicionScore = suspicionScore(sig, existing)

	path, err := a.writeUpload(upload)
	if err != nil {
		return nil, err
	}
	sig.Path = path

	if err := a.Store.RecordPresence(ctx, studentID, courseID, &sig, now); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			log.Printf("[ATTEND] Failed to remove orphaned upload %s: %v", path, rmErr)
		}
		return nil, fmt.Errorf("failed to record presence: %w", err)
	}

	verdict := a.Cache.Validate(ctx, sig)

	dups := a.duplicatesOf(sig, existing)
	if len(dups) > 0 {
		log.Printf("[ATTEND] Signature %d for student %d resembles %d existing signature(s) in course %d",
			sig.ID, studentID, len(dups), courseID)
	}
	a.record(ctx, sig, dups)

	return &model.PresenceReport{
		Signature:  sig,
		Validation: verdict,
		Duplicates: dups,
	}, nil
}

// CheckSignature validates an upload without storing anything.
func (a *Attendance) CheckSignature(ctx context.Context, upload model.Upload) (model.ValidationResult, error) {
	features, hash, err := a.prepare(upload)
	if err != nil {
		return model.ValidationResult{}, err
	}
	return a.Cache.Validate(ctx, model.Signature{Hash: hash, Features: features}), nil
}

func (a *Attendance) Verdict(ctx context.Context, signatureID int64) (model.ValidationResult, error) {
	sig, err := a.Store.Signature(ctx, signatureID)
	if err != nil {
		return model.ValidationResult{}, err
	}
	return a.Cache.Validate(ctx, *sig), nil
}

func (a *Attendance) Duplicates(ctx context.Context, courseID int64) ([]model.DuplicateResult, error) {
	sigs, err := a.Store.CourseSignatures(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course signatures: %w", err)
	}
	dups, err := a.Scanner.Scan(ctx, sigs)
	if err != nil {
		return nil, err
	}
	if dups == nil {
		dups = []model.DuplicateResult{}
	}
	return dups, nil
}

// Rings groups the course's duplicate pairs into rings of linked signatures.
func (a *Attendance) Rings(ctx context.Context, courseID int64) ([]model.Ring, error) {
	sigs, err := a.Store.CourseSignatures(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course signatures: %w", err)
	}
	dups, err := a.Scanner.Scan(ctx, sigs)
	if err != nil {
		return nil, err
	}
	return a.RingDetector.Detect(sigs, dups), nil
}

func (a *Attendance) Suspicious(ctx context.Context, courseID int64, threshold float64) ([]model.Signature, error) {
	sigs, err := a.Store.CourseSignatures(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course signatures: %w", err)
	}
	// CourseSignatures is ordered by descending suspicion.
	return suspicion.FilterDescending(sigs, threshold), nil
}

func (a *Attendance) SharedSigners(ctx context.Context, studentID int64) ([]driver.SharedSigner, error) {
	if a.Recorder == nil {
		return nil, ErrGraphDisabled
	}
	return a.Recorder.SharedSigners(ctx, studentID)
}

func (a *Attendance) prepare(upload model.Upload) ([]int, string, error) {
	if len(upload.Data) == 0 {
		return nil, "", ErrInvalidFile
	}
	img, _, err := imaging.Decode(upload.Data, a.Imaging.MaxPixels)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if !imaging.IsMonochrome(img, a.Imaging.Tolerance) {
		return nil, "", ErrInvalidSignature
	}
	features := imaging.Features(img, a.Imaging.Width, a.Imaging.Height, a.Imaging.Levels)
	return features, imaging.Hash(upload.Data), nil
}

func (a *Attendance) writeUpload(upload model.Upload) (string, error) {
	if err := os.MkdirAll(a.StorageDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if ext == "" {
		ext = ".img"
	}
	path := filepath.Join(a.StorageDir, a.FileIDGenerator()+ext)
	if err := os.WriteFile(path, upload.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write signature file: %w", err)
	}
	return path, nil
}

func (a *Attendance) duplicatesOf(sig model.Signature, existing []model.Signature) []model.DuplicateResult {
	dups := []model.DuplicateResult{}
	for i, other := range existing {
		if sim := similarity.Compare(other, sig); sim > a.Scanner.Threshold {
			dups = append(dups, model.DuplicateResult{
				Original:    i,
				Duplicate:   len(existing),
				OriginalID:  other.ID,
				DuplicateID: sig.ID,
				Similarity:  sim,
			})
		}
	}
	return dups
}

func (a *Attendance) record(ctx context.Context, sig model.Signature, dups []model.DuplicateResult) {
	if a.Recorder == nil {
		return
	}
	if err := a.Recorder.RecordSignature(ctx, sig); err != nil {
		log.Printf("[GRAPH] Failed to record signature %d: %v", sig.ID, err)
		return
	}
	if err := a.Recorder.RecordDuplicates(ctx, dups); err != nil {
		log.Printf("[GRAPH] Failed to record duplicates for signature %d: %v", sig.ID, err)
	}
}

// suspicionScore is the highest similarity between sig and any signature
// left by a different student.
func suspicionScore(sig model.Signature, existing []model.Signature) float64 {
	score := 0.0
	for _, other := range existing {
		if other.StudentID != nil && sig.StudentID != nil && *other.StudentID == *sig.StudentID {
			continue
		}
		if sim := similarity.Compare(sig, other); sim > score {
			score = sim
		}
	}
	return score
}
