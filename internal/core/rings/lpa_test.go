package rings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/attendance/internal/core/model"
)

func triangle(a, b, c int) []model.DuplicateResult {
	return []model.DuplicateResult{pair(a, b, 1), pair(b, c, 1), pair(a, c, 1)}
}

func TestLPA_DisconnectedTriangles(t *testing.T) {
	sigs := signatures(1, 2, 3, 4, 5, 6)
	dups := append(triangle(0, 1, 2), triangle(3, 4, 5)...)

	rings := NewLabelPropagationDetector().Detect(sigs, dups)

	require.Len(t, rings, 2)
	assert.Equal(t, []int64{100, 101, 102}, rings[0].SignatureIDs)
	assert.Equal(t, []int64{103, 104, 105}, rings[1].SignatureIDs)
}

func TestLPA_BridgedTriangles(t *testing.T) {
	// 2-3 bridges two triangles; each side has more weight internally.
	sigs := signatures(1, 2, 3, 4, 5, 6)
	dups := append(triangle(0, 1, 2), triangle(3, 4, 5)...)
	dups = append(dups, pair(2, 3, 1))

	rings := NewLabelPropagationDetector().Detect(sigs, dups)
	require.Len(t, rings, 2)
	assert.Equal(t, []int64{100, 101, 102}, rings[0].SignatureIDs)
	assert.Equal(t, []int64{103, 104, 105}, rings[1].SignatureIDs)

	// The connected view keeps them together.
	assert.Len(t, NewComponentDetector().Detect(sigs, dups), 1)
}

func TestLPA_Clique(t *testing.T) {
	sigs := signatures(1, 2, 3, 4, 5)
	var dups []model.DuplicateResult
	for i := range sigs {
		for j := i + 1; j < len(sigs); j++ {
			dups = append(dups, pair(i, j, 0.97))
		}
	}

	rings := NewLabelPropagationDetector().Detect(sigs, dups)
	require.Len(t, rings, 1)
	assert.Len(t, rings[0].SignatureIDs, 5)
	assert.Equal(t, 0.97, rings[0].MaxSimilarity)
}
