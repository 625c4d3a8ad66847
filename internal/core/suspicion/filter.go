package suspicion

import (
	"math"
	"slices"
	"sort"

	"github.com/agenthands/attendance/internal/core/model"
)

const DefaultThreshold = 0.8

// Filter returns the signatures whose suspicion score is at least threshold,
// in input order. The input is never modified. A NaN threshold matches nothing.
func Filter(sigs []model.Signature, threshold float64) []model.Signature {
	suspicious := []model.Signature{}
	if threshold > 1 || math.IsNaN(threshold) {
		return suspicious
	}
	for _, sig := range sigs {
		if sig.SuspicionScore >= threshold {
			suspicious = append(suspicious, sig)
		}
	}
	return suspicious
}

// FilterDescending is Filter for input already sorted by descending
// suspicion score. The boundary is found by binary search, so the result is
// only correct when the caller guarantees that ordering.
func FilterDescending(sigs []model.Signature, threshold float64) []model.Signature {
	if threshold > 1 || math.IsNaN(threshold) {
		return []model.Signature{}
	}
	n := sort.Search(len(sigs), func(i int) bool {
		return sigs[i].SuspicionScore < threshold
	})
	out := make([]model.Signature, n)
	copy(out, sigs[:n])
	return out
}

// FilterAuto uses the binary search path when the input turns out to be
// sorted descending and falls back to a linear scan otherwise. Checking the
// order is itself linear, so this only pays off when the caller expects
// sorted input and cannot prove it.
func FilterAuto(sigs []model.Signature, threshold float64) []model.Signature {
	if IsDescending(sigs) {
		return FilterDescending(sigs, threshold)
	}
	return Filter(sigs, threshold)
}

func IsDescending(sigs []model.Signature) bool {
	return slices.IsSortedFunc(sigs, func(a, b model.Signature) int {
		switch {
		case a.SuspicionScore > b.SuspicionScore:
			return -1
		case a.SuspicionScore < b.SuspicionScore:
			return 1
		}
		return 0
	})
}
