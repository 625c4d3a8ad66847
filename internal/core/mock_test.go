package core

import (
	"context"
	"sync"
	"time"

	"github.com/agenthands/attendance/internal/core/model"
	"github.com/agenthands/attendance/internal/driver"
	"github.com/agenthands/attendance/internal/storage/sqlite"
)

type MockRecorder struct {
	mu         sync.Mutex
	Signatures []model.Signature
	Duplicates []model.DuplicateResult
	Signers    []driver.SharedSigner
	Err        error
}

func (m *MockRecorder) RecordSignature(ctx context.Context, sig model.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Signatures = append(m.Signatures, sig)
	return m.Err
}

func (m *MockRecorder) RecordDuplicates(ctx context.Context, dups []model.DuplicateResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Duplicates = append(m.Duplicates, dups...)
	return m.Err
}

func (m *MockRecorder) SharedSigners(ctx context.Context, studentID int64) ([]driver.SharedSigner, error) {
	return m.Signers, m.Err
}

// failingStore fails RecordPresence after the upload has been written.
type failingStore struct {
	*sqlite.SQLiteStorage
	Err error
}

func (f *failingStore) RecordPresence(ctx context.Context, studentID, courseID int64, sig *model.Signature, at time.Time) error {
	return f.Err
}
