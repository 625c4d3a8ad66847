package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agenthands/attendance/internal/core/dedupe"
	"github.com/agenthands/attendance/internal/core/sample"
)

type benchResult struct {
	Size       int           `json:"size"`
	BruteForce time.Duration `json:"brute_force_ns"`
	Banded     time.Duration `json:"banded_ns"`
	Pairs      int           `json:"pairs"`
	Agree      bool          `json:"agree"`
}

func (r benchResult) Speedup() float64 {
	if r.Banded <= 0 {
		return 0
	}
	return float64(r.BruteForce) / float64(r.Banded)
}

func NewBenchCmd() *cobra.Command {
	var (
		sizes     []int
		length    int
		threshold float64
		workers   int
		seed      int64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare brute force and banded duplicate scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scanner, err := dedupe.NewScanner(threshold, workers)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
			fmt.Fprintf(w, "%s\n", cyan("=== Duplicate scan benchmark ==="))
			fmt.Fprintf(w, "%8s %14s %14s %8s %6s\n", "size", "brute force", "banded", "speedup", "pairs")

			mismatch := false
			for _, n := range sizes {
				opts := sample.DefaultOptions()
				opts.Count = n
				opts.Length = length
				opts.DuplicateRate = 0.1
				opts.MaxFlips = 10
				opts.Seed = seed
				sigs := sample.Generate(opts)

				start := time.Now()
				want := dedupe.BruteForce(sigs, threshold)
				res := benchResult{Size: n, BruteForce: time.Since(start)}

				start = time.Now()
				got, err := scanner.Scan(cmd.Context(), sigs)
				if err != nil {
					return err
				}
				res.Banded = time.Since(start)
				res.Pairs = len(got)
				res.Agree = slices.Equal(want, got)

				line := fmt.Sprintf("%8d %14s %14s %7.1fx %6d", res.Size, res.BruteForce.Round(time.Microsecond),
					res.Banded.Round(time.Microsecond), res.Speedup(), res.Pairs)
				if res.Agree {
					color.New(color.FgGreen).Fprintln(w, line)
				} else {
					mismatch = true
					color.New(color.FgRed, color.Bold).Fprintln(w, line+"  MISMATCH")
				}
			}

			if mismatch {
				return fmt.Errorf("banded scan disagreed with brute force")
			}
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{100, 500, 1000}, "Signature counts to benchmark")
	cmd.Flags().IntVar(&length, "length", 1000, "Feature vector length")
	cmd.Flags().Float64Var(&threshold, "threshold", dedupe.DefaultThreshold, "Similarity threshold")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel band workers (0 = GOMAXPROCS)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed")

	return cmd
}
