package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agenthands/attendance/internal/core/model"
	"github.com/agenthands/attendance/internal/core/suspicion"
)

func NewSuspiciousCmd() *cobra.Command {
	var (
		in        string
		threshold float64
		sorted    bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "suspicious",
		Short: "List signatures at or above a suspicion threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sigs, err := readSignatures(in, cmd.InOrStdin())
			if err != nil {
				return err
			}

			var found []model.Signature
			if sorted {
				if !suspicion.IsDescending(sigs) {
					return fmt.Errorf("--sorted given but input is not ordered by descending suspicion")
				}
				found = suspicion.FilterDescending(sigs, threshold)
			} else {
				found = suspicion.FilterAuto(sigs, threshold)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), found)
			}

			w := cmd.OutOrStdout()
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(w, "%d of %d signatures at or above %.2f\n", len(found), len(sigs), threshold)
			for _, s := range found {
				fmt.Fprintf(w, "  %-8d %-20s %s\n", s.ID, s.Hash, red(fmt.Sprintf("%.4f", s.SuspicionScore)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "-", "Input JSON file")
	cmd.Flags().Float64Var(&threshold, "threshold", suspicion.DefaultThreshold, "Minimum suspicion score")
	cmd.Flags().BoolVar(&sorted, "sorted", false, "Input is ordered by descending suspicion")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")

	return cmd
}
