package sample

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/agenthands/attendance/internal/core/model"
)

// Options control synthetic signature generation for tests and benchmarks.
type Options struct {
	Count            int
	Length           int
	Variance         int
	MinSuspicion     float64
	MaxSuspicion     float64
	IncludeTimestamp bool

	// DuplicateRate is the fraction of signatures copied from an earlier one
	// with a few positions perturbed.
	DuplicateRate float64
	MaxFlips      int

	Seed int64
}

func DefaultOptions() Options {
	return Options{
		Count:        100,
		Length:       1000,
		Variance:     255,
		MinSuspicion: 0,
		MaxSuspicion: 1,
		Seed:         1,
	}
}

func Generate(opts Options) []model.Signature {
	rng := rand.New(rand.NewSource(opts.Seed))
	if opts.Variance <= 0 {
		opts.Variance = 1
	}
	now := time.Now().UTC()

	sigs := make([]model.Signature, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		sig := model.Signature{
			ID:             int64(i),
			Hash:           hashFor(i),
			SuspicionScore: opts.MinSuspicion + rng.Float64()*(opts.MaxSuspicion-opts.MinSuspicion),
		}

		if i > 0 && opts.DuplicateRate > 0 && rng.Float64() < opts.DuplicateRate {
			src := sigs[rng.Intn(len(sigs))].Features
			sig.Features = append([]int(nil), src...)
			flips := 0
			if opts.MaxFlips > 0 {
				flips = rng.Intn(opts.MaxFlips + 1)
			}
			for f := 0; f < flips && opts.Length > 0; f++ {
				sig.Features[rng.Intn(opts.Length)] = rng.Intn(opts.Variance)
			}
		} else {
			sig.Features = make([]int, opts.Length)
			for j := range sig.Features {
				sig.Features[j] = rng.Intn(opts.Variance)
			}
		}

		if opts.IncludeTimestamp {
			ts := now.Add(-time.Duration(rng.Int63n(int64(24 * time.Hour))))
			sig.CapturedAt = &ts
		}

		sigs = append(sigs, sig)
	}
	return sigs
}

func hashFor(i int) string {
	return "hash_" + strconv.Itoa(i)
}
