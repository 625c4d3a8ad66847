package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_Defaults(t *testing.T) {
	opts := DefaultOptions()
	opts.Count = 20
	opts.IncludeTimestamp = true

	sigs := Generate(opts)

	assert.Len(t, sigs, 20)
	for i, sig := range sigs {
		assert.Equal(t, int64(i), sig.ID)
		assert.Len(t, sig.Features, 1000)
		assert.GreaterOrEqual(t, sig.SuspicionScore, 0.0)
		assert.LessOrEqual(t, sig.SuspicionScore, 1.0)
		assert.NotNil(t, sig.CapturedAt)
	}
	assert.Equal(t, "hash_7", sigs[7].Hash)
}

func TestGenerate_Deterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.Count = 10
	opts.DuplicateRate = 0.5
	opts.MaxFlips = 3

	assert.Equal(t, Generate(opts), Generate(opts))
}

func TestGenerate_SuspicionRange(t *testing.T) {
	opts := DefaultOptions()
	opts.Count = 50
	opts.MinSuspicion = 0.7
	opts.MaxSuspicion = 0.9

	for _, sig := range Generate(opts) {
		assert.GreaterOrEqual(t, sig.SuspicionScore, 0.7)
		assert.LessOrEqual(t, sig.SuspicionScore, 0.9)
	}
}
