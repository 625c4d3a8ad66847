package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/attendance/internal/core/sample"
)

func NewGenerateCmd() *cobra.Command {
	opts := sample.DefaultOptions()
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic signatures as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sigs := sample.Generate(opts)

			if out == "" || out == "-" {
				return writeJSON(cmd.OutOrStdout(), sigs)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()
			if err := writeJSON(f, sigs); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d signatures to %s\n", len(sigs), out)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Count, "count", opts.Count, "Number of signatures")
	cmd.Flags().IntVar(&opts.Length, "length", opts.Length, "Feature vector length")
	cmd.Flags().IntVar(&opts.Variance, "variance", opts.Variance, "Number of distinct feature values")
	cmd.Flags().Float64Var(&opts.DuplicateRate, "duplicate-rate", 0.1, "Fraction of signatures copied from an earlier one")
	cmd.Flags().IntVar(&opts.MaxFlips, "max-flips", 10, "Maximum perturbed positions per copy")
	cmd.Flags().BoolVar(&opts.IncludeTimestamp, "timestamps", false, "Include capture timestamps")
	cmd.Flags().Int64Var(&opts.Seed, "seed", opts.Seed, "Random seed")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file")

	return cmd
}
