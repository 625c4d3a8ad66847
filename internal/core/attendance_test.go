package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agenthands/attendance/internal/core/dedupe"
	"github.com/agenthands/attendance/internal/core/imaging"
	"github.com/agenthands/attendance/internal/core/model"
	"github.com/agenthands/attendance/internal/core/validation"
	"github.com/agenthands/attendance/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     *Attendance
	store   *sqlite.SQLiteStorage
	course  model.Course
	alice   model.Student
	bob     model.Student
	outside model.Student
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := sqlite.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:   store,
		course:  model.Course{Name: "Algorithms"},
		alice:   model.Student{FirstName: "Alice", LastName: "Martin"},
		bob:     model.Student{FirstName: "Bob", LastName: "Durand"},
		outside: model.Student{FirstName: "Eve", LastName: "Noel"},
	}
	require.NoError(t, store.AddCourse(ctx, &f.course))
	for _, s := range []*model.Student{&f.alice, &f.bob, &f.outside} {
		require.NoError(t, store.AddStudent(ctx, s))
	}
	require.NoError(t, store.Enroll(ctx, f.alice.ID, f.course.ID))
	require.NoError(t, store.Enroll(ctx, f.bob.ID, f.course.ID))

	validator := &validation.InkValidator{Width: 16, MinInk: 0.01, MaxInk: 0.6, MinStrokeRows: 2}
	cache, err := validation.NewCache(validator, validation.DefaultConfig())
	require.NoError(t, err)
	scanner, err := dedupe.NewScanner(dedupe.DefaultThreshold, 2)
	require.NoError(t, err)

	opts := ImagingOptions{Width: 16, Height: 8, Levels: 8, Tolerance: 16}
	f.svc = NewAttendance(store, cache, scanner, opts, filepath.Join(dir, "storage"))
	fixed := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	f.svc.Now = func() time.Time { return fixed }
	n := 0
	f.svc.FileIDGenerator = func() string {
		n++
		return fmt.Sprintf("file-%d", n)
	}
	return f
}

// signaturePNG draws a diagonal stroke; offset shifts it to make distinct signatures.
func signaturePNG(t *testing.T, offset int, ink color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 160, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 160; x++ {
			img.Set(x, y, color.White)
		}
	}
	for x := 0; x < 160; x++ {
		y := (x/2 + offset*13) % 80
		for dy := 0; dy < 6 && y+dy < 80; dy++ {
			img.Set(x, y+dy, ink)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestMarkPresent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.svc.MarkPresent(ctx, f.alice.ID, f.course.ID, model.Upload{
		Filename: "signature.PNG",
		Data:     signaturePNG(t, 0, color.Black),
	})
	require.NoError(t, err)

	assert.NotZero(t, report.Signature.ID)
	assert.True(t, report.Validation.IsValid)
	assert.Empty(t, report.Duplicates)
	assert.Equal(t, 0.0, report.Signature.SuspicionScore)
	assert.Equal(t, "file-1.png", filepath.Base(report.Signature.Path))
	_, err = os.Stat(report.Signature.Path)
	assert.NoError(t, err)

	st, err := f.svc.State(ctx, f.alice.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatePresent, st.State)
	assert.Equal(t, report.Signature.ID, *st.SignatureID)

	roster, err := f.svc.Roster(ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, model.StatePresent, roster[0].State)
	assert.Equal(t, model.StateAbsent, roster[1].State)
}

func TestMarkPresent_CopiedSignatureIsSuspicious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := &MockRecorder{}
	f.svc.Recorder = rec
	data := signaturePNG(t, 1, color.Black)

	first, err := f.svc.MarkPresent(ctx, f.alice.ID, f.course.ID, model.Upload{Filename: "a.png", Data: data})
	require.NoError(t, err)

	second, err := f.svc.MarkPresent(ctx, f.bob.ID, f.course.ID, model.Upload{Filename: "b.png", Data: data})
	require.NoError(t, err)

	assert.Equal(t, 1.0, second.Signature.SuspicionScore)
	require.Len(t, second.Duplicates, 1)
	assert.Equal(t, first.Signature.ID, second.Duplicates[0].OriginalID)
	assert.Equal(t, second.Signature.ID, second.Duplicates[0].DuplicateID)

	assert.Len(t, rec.Signatures, 2)
	assert.Len(t, rec.Duplicates, 1)

	dups, err := f.svc.Duplicates(ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, 1.0, dups[0].Similarity)

	suspicious, err := f.svc.Suspicious(ctx, f.course.ID, 0.8)
	require.NoError(t, err)
	require.Len(t, suspicious, 1)
	assert.Equal(t, second.Signature.ID, suspicious[0].ID)

	signers, err := f.svc.SharedSigners(ctx, f.alice.ID)
	assert.NoError(t, err)
	assert.Empty(t, signers)
}

func TestMarkPresent_SameStudentResubmitIsNotSuspicious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := signaturePNG(t, 2, color.Black)

	_, err := f.svc.MarkPresent(ctx, f.alice.ID, f.course.ID, model.Upload{Filename: "a.png", Data: data})
	require.NoError(t, err)
	again, err := f.svc.MarkPresent(ctx, f.alice.ID, f.course.ID, model.Upload{Filename: "a.png", Data: data})
	require.NoError(t, err)

	assert.Equal(t, 0.0, again.Signature.SuspicionScore)
	assert.Len(t, again.Duplicates, 1, "resubmissions still show up as duplicates")
}

func TestMarkPresent_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.MarkPresent(ctx, f.alice.ID, f.course.ID, model.Upload{Filename: "a.png"})
	assert.ErrorIs(t, err, ErrInvalidFile)

	_, err = f.svc.MarkPresent(ctx, f.alice.ID, f.course.ID, model.Upload{Filename: "a.png", Data: []byte("garbage")})
	assert.ErrorIs(t, err, ErrInvalidFile)

	red := signaturePNG(t, 0, color.RGBA{R: 220, A: 255})
	_, err = f.svc.MarkPresent(ctx, f.alice.ID, f.course.ID, model.Upload{Filename: "a.png", Data: red})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = f.svc.MarkPresent(ctx, f.outside.ID, f.course.ID, model.Upload{Filename: "a.png", Data: signaturePNG(t, 0, color.Black)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkPresent_StoreFailureLeavesNoUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.Store = &failingStore{SQLiteStorage: f.store, Err: errors.New("disk full")}

	_, err := f.svc.MarkPresent(ctx, f.alice.ID, f.course.ID, model.Upload{Filename: "a.png", Data: signaturePNG(t, 0, color.Black)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	entries, err := os.ReadDir(f.svc.StorageDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	st, err := f.store.State(ctx, f.alice.ID, f.course.ID)
	require.NoError(t, err)
	assert.NotEqual(t, model.StatePresent, st.State)
	sigs, err := f.store.CourseSignatures(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Empty(t, sigs)
}

func TestMarkPresent_PixelLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.Imaging.MaxPixels = 160*80 - 1

	_, err := f.svc.MarkPresent(ctx, f.alice.ID, f.course.ID, model.Upload{Filename: "a.png", Data: signaturePNG(t, 0, color.Black)})
	assert.ErrorIs(t, err, ErrInvalidFile)
	assert.ErrorIs(t, err, imaging.ErrTooLarge)

	f.svc.Imaging.MaxPixels = 160 * 80
	_, err = f.svc.MarkPresent(ctx, f.alice.ID, f.course.ID, model.Upload{Filename: "a.png", Data: signaturePNG(t, 0, color.Black)})
	assert.NoError(t, err)
}

func TestCheckSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CheckSignature(ctx, model.Upload{Data: signaturePNG(t, 3, color.Black)})
	require.NoError(t, err)
	assert.True(t, res.IsValid)

	blank := signaturePNG(t, 0, color.White)
	res, err = f.svc.CheckSignature(ctx, model.Upload{Data: blank})
	require.NoError(t, err)
	assert.False(t, res.IsValid)

	roster, err := f.svc.Roster(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateAbsent, roster[0].State, "checking does not mark presence")
}

func TestVerdict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.svc.MarkPresent(ctx, f.alice.ID, f.course.ID, model.Upload{Filename: "a.png", Data: signaturePNG(t, 4, color.Black)})
	require.NoError(t, err)

	res, err := f.svc.Verdict(ctx, report.Signature.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Validation, res)
	assert.Equal(t, uint64(1), f.svc.Cache.Stats().Hits)

	_, err = f.svc.Verdict(ctx, 4242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSharedSigners_Disabled(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SharedSigners(context.Background(), f.alice.ID)
	assert.ErrorIs(t, err, ErrGraphDisabled)
}

func TestDuplicates_EmptyCourse(t *testing.T) {
	f := newFixture(t)
	dups, err := f.svc.Duplicates(context.Background(), f.course.ID)
	require.NoError(t, err)
	assert.NotNil(t, dups)
	assert.Empty(t, dups)
}

func TestRings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := signaturePNG(t, 5, color.Black)

	for _, s := range []model.Student{f.alice, f.bob} {
		_, err := f.svc.MarkPresent(ctx, s.ID, f.course.ID, model.Upload{Filename: "s.png", Data: data})
		require.NoError(t, err)
	}

	rings, err := f.svc.Rings(ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, rings, 1)
	assert.True(t, rings[0].Shared())
	assert.Equal(t, []int64{f.alice.ID, f.bob.ID}, rings[0].StudentIDs)
}
