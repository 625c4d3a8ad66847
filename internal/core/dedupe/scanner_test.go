package dedupe

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/agenthands/attendance/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_ThreeSignatures(t *testing.T) {
	sigs := []model.Signature{
		{ID: 10, Features: []int{1, 2, 3}},
		{ID: 11, Features: []int{1, 2, 3}},
		{ID: 12, Features: []int{9, 9, 9}},
	}

	scanner, err := NewScanner(DefaultThreshold, 2)
	require.NoError(t, err)

	results, err := scanner.Scan(context.Background(), sigs)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Original)
	assert.Equal(t, 1, results[0].Duplicate)
	assert.Equal(t, int64(10), results[0].OriginalID)
	assert.Equal(t, int64(11), results[0].DuplicateID)
	assert.Equal(t, 1.0, results[0].Similarity)
}

func TestScan_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, size := range []int{50, 120, 300, 500} {
		sigs := randomSignatures(rng, size, 200)

		scanner, err := NewScanner(DefaultThreshold, 4)
		require.NoError(t, err)

		got, err := scanner.Scan(context.Background(), sigs)
		require.NoError(t, err)

		want := BruteForce(sigs, DefaultThreshold)
		assert.Equal(t, want, got, "size %d", size)
		assert.NotEmpty(t, want, "generator should plant duplicates for size %d", size)
	}
}

func TestScan_MatchesBruteForceAcrossThresholds(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	sigs := randomSignatures(rng, 80, 12)
	// Mixed lengths and empty vectors never pair with anything.
	sigs = append(sigs,
		model.Signature{ID: 1000, Features: []int{1, 2}},
		model.Signature{ID: 1001},
		model.Signature{ID: 1002, Features: []int{1, 2}},
	)

	for _, threshold := range []float64{0, 0.3, 0.5, 0.9, 0.95, 1} {
		scanner, err := NewScanner(threshold, 3)
		require.NoError(t, err)

		got, err := scanner.Scan(context.Background(), sigs)
		require.NoError(t, err)
		assert.Equal(t, BruteForce(sigs, threshold), got, "threshold %.2f", threshold)
	}
}

func TestScan_SmallInputs(t *testing.T) {
	scanner, err := NewScanner(DefaultThreshold, 1)
	require.NoError(t, err)

	results, err := scanner.Scan(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, results)

	results, err = scanner.Scan(context.Background(), []model.Signature{{ID: 1, Features: []int{1}}})
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestScan_Cancelled(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sigs := randomSignatures(rng, 100, 50)

	scanner, err := NewScanner(DefaultThreshold, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = scanner.Scan(ctx, sigs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_ZeroValueScanner(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	sigs := randomSignatures(rng, 60, 40)
	scanner := &Scanner{Threshold: DefaultThreshold}

	done := make(chan []model.DuplicateResult, 1)
	go func() {
		results, err := scanner.Scan(context.Background(), sigs)
		assert.NoError(t, err)
		done <- results
	}()

	select {
	case results := <-done:
		assert.Equal(t, BruteForce(sigs, DefaultThreshold), results)
	case <-time.After(5 * time.Second):
		t.Fatal("scan with zero workers did not return")
	}
}

func TestNewScanner_InvalidThreshold(t *testing.T) {
	_, err := NewScanner(1.5, 1)
	assert.Error(t, err)
	_, err = NewScanner(-0.1, 1)
	assert.Error(t, err)
}

// randomSignatures builds random vectors and plants near copies of some of
// them so the scan has real duplicates to find.
func randomSignatures(rng *rand.Rand, count, length int) []model.Signature {
	sigs := make([]model.Signature, 0, count)
	for i := 0; i < count; i++ {
		var features []int
		if i > 0 && rng.Intn(4) == 0 {
			src := sigs[rng.Intn(len(sigs))].Features
			features = append([]int(nil), src...)
			flips := rng.Intn(length/10 + 1)
			for f := 0; f < flips; f++ {
				features[rng.Intn(length)] = rng.Intn(4)
			}
		} else {
			features = make([]int, length)
			for j := range features {
				features[j] = rng.Intn(4)
			}
		}
		sigs = append(sigs, model.Signature{ID: int64(i), Features: features})
	}
	return sigs
}
