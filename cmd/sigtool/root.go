package main

import (
	"github.com/spf13/cobra"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sigtool",
		Short:         "Offline tools for attendance signature vectors",
		Long:          `Generate synthetic signatures, scan them for near-duplicates, filter suspicious ones and benchmark the scanner.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.AddCommand(
		NewGenerateCmd(),
		NewDuplicatesCmd(),
		NewSuspiciousCmd(),
		NewRingsCmd(),
		NewBenchCmd(),
	)

	return rootCmd
}
