package similarity

import "github.com/agenthands/attendance/internal/core/model"

// Compare returns the fraction of positions at which the two feature
// vectors agree. Absent, empty or differently sized vectors score 0,
// which callers must read as "incomparable", not "distinct".
func Compare(a, b model.Signature) float64 {
	return CompareFeatures(a.Features, b.Features)
}

func CompareFeatures(a, b []int) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}

	return float64(matches) / float64(len(a))
}

// MaxMismatches returns the largest number of differing positions a pair
// of length-n vectors may have while still scoring strictly above
// threshold. It returns -1 when no pair of that length can qualify.
func MaxMismatches(n int, threshold float64) int {
	k := -1
	for m := 0; m <= n; m++ {
		if float64(n-m)/float64(n) > threshold {
			k = m
			continue
		}
		break
	}
	return k
}
