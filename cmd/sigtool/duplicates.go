package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agenthands/attendance/internal/core/dedupe"
)

func NewDuplicatesCmd() *cobra.Command {
	var (
		in        string
		threshold float64
		workers   int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Find near-duplicate signature pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sigs, err := readSignatures(in, cmd.InOrStdin())
			if err != nil {
				return err
			}

			scanner, err := dedupe.NewScanner(threshold, workers)
			if err != nil {
				return err
			}
			dups, err := scanner.Scan(cmd.Context(), sigs)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), dups)
			}

			w := cmd.OutOrStdout()
			if len(dups) == 0 {
				color.New(color.FgGreen).Fprintf(w, "✓ No duplicates among %d signatures\n", len(sigs))
				return nil
			}
			color.New(color.FgYellow, color.Bold).Fprintf(w, "%d duplicate pair(s) among %d signatures\n", len(dups), len(sigs))
			for _, d := range dups {
				fmt.Fprintf(w, "  %d ~ %d  (ids %d, %d)  %.4f\n", d.Original, d.Duplicate, d.OriginalID, d.DuplicateID, d.Similarity)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "-", "Input JSON file")
	cmd.Flags().Float64Var(&threshold, "threshold", dedupe.DefaultThreshold, "Similarity above which a pair is reported")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel band workers (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")

	return cmd
}
