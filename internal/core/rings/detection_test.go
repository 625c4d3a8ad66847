package rings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/attendance/internal/core/model"
)

func signatures(students ...int64) []model.Signature {
	sigs := make([]model.Signature, len(students))
	for i, s := range students {
		student := s
		sigs[i] = model.Signature{ID: int64(100 + i), StudentID: &student}
	}
	return sigs
}

func pair(a, b int, sim float64) model.DuplicateResult {
	return model.DuplicateResult{Original: a, Duplicate: b, OriginalID: int64(100 + a), DuplicateID: int64(100 + b), Similarity: sim}
}

func TestComponentDetector(t *testing.T) {
	sigs := signatures(1, 2, 3, 4)
	dups := []model.DuplicateResult{
		pair(0, 1, 0.97),
		pair(1, 2, 0.99),
		// 3 is isolated
	}

	rings := NewComponentDetector().Detect(sigs, dups)

	// 0-1-2 form one ring; 3 is a singleton and dropped.
	require.Len(t, rings, 1)
	assert.Equal(t, []int64{100, 101, 102}, rings[0].SignatureIDs)
	assert.Equal(t, []int64{1, 2, 3}, rings[0].StudentIDs)
	assert.Equal(t, 0.99, rings[0].MaxSimilarity)
	assert.True(t, rings[0].Shared())
}

func TestComponentDetector_SameStudent(t *testing.T) {
	sigs := signatures(7, 7)
	rings := NewComponentDetector().Detect(sigs, []model.DuplicateResult{pair(0, 1, 1)})

	require.Len(t, rings, 1)
	assert.Equal(t, []int64{7}, rings[0].StudentIDs)
	assert.False(t, rings[0].Shared())
}

func TestComponentDetector_IgnoresOutOfRangePairs(t *testing.T) {
	sigs := signatures(1, 2)
	rings := NewComponentDetector().Detect(sigs, []model.DuplicateResult{pair(0, 5, 1), pair(1, 1, 1)})
	assert.Empty(t, rings)
}

func TestComponentDetector_Empty(t *testing.T) {
	assert.Empty(t, NewComponentDetector().Detect(nil, nil))
}

func TestComponentDetector_Order(t *testing.T) {
	sigs := signatures(1, 2, 3, 4)
	rings := NewComponentDetector().Detect(sigs, []model.DuplicateResult{pair(2, 3, 0.96), pair(0, 1, 0.98)})

	require.Len(t, rings, 2)
	assert.Equal(t, []int64{100, 101}, rings[0].SignatureIDs)
	assert.Equal(t, []int64{102, 103}, rings[1].SignatureIDs)
}
