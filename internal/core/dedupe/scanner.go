package dedupe

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/agenthands/attendance/internal/core/model"
	"github.com/agenthands/attendance/internal/core/similarity"
)

const DefaultThreshold = 0.95

// Scanner reports near-duplicate signature pairs. Candidate pairs come from
// pigeonhole banding: a pair scoring above the threshold differs in at most
// K positions, so cutting each vector into K+1 bands guarantees one band is
// identical. Only pairs sharing a band are compared, and the output is the
// same set BruteForce would return.
type Scanner struct {
	Threshold float64
	Workers   int
}

func NewScanner(threshold float64, workers int) (*Scanner, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0.0 and 1.0 (got %.2f)", threshold)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Scanner{
		Threshold: threshold,
		Workers:   workers,
	}, nil
}

// BruteForce compares every pair. It is the reference the banded scan must agree with.
func BruteForce(sigs []model.Signature, threshold float64) []model.DuplicateResult {
	var duplicates []model.DuplicateResult
	for i := 0; i < len(sigs); i++ {
		for j := i + 1; j < len(sigs); j++ {
			if sim := similarity.Compare(sigs[i], sigs[j]); sim > threshold {
				duplicates = append(duplicates, newResult(sigs, i, j, sim))
			}
		}
	}
	return duplicates
}

func (s *Scanner) Scan(ctx context.Context, sigs []model.Signature) ([]model.DuplicateResult, error) {
	if len(sigs) < 2 {
		return nil, nil
	}

	// Only equal-length vectors can score above zero.
	groups := make(map[int][]int)
	var lengths []int
	for i, sig := range sigs {
		n := len(sig.Features)
		if n == 0 {
			continue
		}
		if _, ok := groups[n]; !ok {
			lengths = append(lengths, n)
		}
		groups[n] = append(groups[n], i)
	}

	var tasks []func() []model.DuplicateResult
	for _, n := range lengths {
		members := groups[n]
		if len(members) < 2 {
			continue
		}
		k := similarity.MaxMismatches(n, s.Threshold)
		if k < 0 {
			continue
		}
		if k+1 > n {
			tasks = append(tasks, func() []model.DuplicateResult {
				return s.scanAll(sigs, members)
			})
			continue
		}
		bands := splitBands(n, k+1)
		for b := range bands {
			tasks = append(tasks, func() []model.DuplicateResult {
				return s.scanBand(sigs, members, bands, b)
			})
		}
	}

	partials := make([][]model.DuplicateResult, len(tasks))
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partials[i] = task()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("duplicate scan aborted: %w", err)
	}

	var duplicates []model.DuplicateResult
	for _, p := range partials {
		duplicates = append(duplicates, p...)
	}
	sort.Slice(duplicates, func(i, j int) bool {
		if duplicates[i].Original != duplicates[j].Original {
			return duplicates[i].Original < duplicates[j].Original
		}
		return duplicates[i].Duplicate < duplicates[j].Duplicate
	})

	return duplicates, nil
}

func (s *Scanner) scanAll(sigs []model.Signature, members []int) []model.DuplicateResult {
	var out []model.DuplicateResult
	for x := 0; x < len(members); x++ {
		for y := x + 1; y < len(members); y++ {
			i, j := members[x], members[y]
			if sim := similarity.Compare(sigs[i], sigs[j]); sim > s.Threshold {
				out = append(out, newResult(sigs, i, j, sim))
			}
		}
	}
	return out
}

// scanBand compares pairs whose band b is identical. A pair is only scored
// in the lowest band they share so no pair is reported twice.
func (s *Scanner) scanBand(sigs []model.Signature, members []int, bands [][2]int, b int) []model.DuplicateResult {
	lo, hi := bands[b][0], bands[b][1]

	buckets := make(map[uint64][]int)
	for _, i := range members {
		key := bandHash(sigs[i].Features[lo:hi])
		buckets[key] = append(buckets[key], i)
	}

	var out []model.DuplicateResult
	for _, bucket := range buckets {
		for x := 0; x < len(bucket); x++ {
			for y := x + 1; y < len(bucket); y++ {
				i, j := bucket[x], bucket[y]
				a, c := sigs[i].Features, sigs[j].Features
				if !equalRange(a, c, lo, hi) || sharesEarlierBand(a, c, bands, b) {
					continue
				}
				if sim := similarity.Compare(sigs[i], sigs[j]); sim > s.Threshold {
					out = append(out, newResult(sigs, i, j, sim))
				}
			}
		}
	}
	return out
}

func splitBands(n, count int) [][2]int {
	bands := make([][2]int, count)
	for b := 0; b < count; b++ {
		bands[b] = [2]int{b * n / count, (b + 1) * n / count}
	}
	return bands
}

func sharesEarlierBand(a, c []int, bands [][2]int, b int) bool {
	for prev := 0; prev < b; prev++ {
		if equalRange(a, c, bands[prev][0], bands[prev][1]) {
			return true
		}
	}
	return false
}

func equalRange(a, c []int, lo, hi int) bool {
	for i := lo; i < hi; i++ {
		if a[i] != c[i] {
			return false
		}
	}
	return true
}

func bandHash(values []int) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	return h.Sum64()
}

func newResult(sigs []model.Signature, i, j int, sim float64) model.DuplicateResult {
	return model.DuplicateResult{
		Original:    i,
		Duplicate:   j,
		OriginalID:  sigs[i].ID,
		DuplicateID: sigs[j].ID,
		Similarity:  sim,
	}
}
