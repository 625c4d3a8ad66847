package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agenthands/attendance/internal/core/dedupe"
	"github.com/agenthands/attendance/internal/core/rings"
)

func NewRingsCmd() *cobra.Command {
	var (
		in        string
		threshold float64
		lpa       bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "rings",
		Short: "Group near-duplicate signatures into rings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sigs, err := readSignatures(in, cmd.InOrStdin())
			if err != nil {
				return err
			}

			scanner, err := dedupe.NewScanner(threshold, 0)
			if err != nil {
				return err
			}
			dups, err := scanner.Scan(cmd.Context(), sigs)
			if err != nil {
				return err
			}

			var detector rings.Detector = rings.NewComponentDetector()
			if lpa {
				detector = rings.NewLabelPropagationDetector()
			}
			found := detector.Detect(sigs, dups)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), found)
			}

			w := cmd.OutOrStdout()
			bold := color.New(color.Bold).SprintFunc()
			fmt.Fprintf(w, "%s ring(s) from %d duplicate pair(s)\n", bold(len(found)), len(dups))
			for i, r := range found {
				line := fmt.Sprintf("  #%d signatures=%v students=%v max=%.4f", i+1, r.SignatureIDs, r.StudentIDs, r.MaxSimilarity)
				if r.Shared() {
					color.New(color.FgRed).Fprintln(w, line)
				} else {
					fmt.Fprintln(w, line)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "-", "Input JSON file")
	cmd.Flags().Float64Var(&threshold, "threshold", dedupe.DefaultThreshold, "Similarity above which a pair is linked")
	cmd.Flags().BoolVar(&lpa, "lpa", false, "Split bridged rings with label propagation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")

	return cmd
}
