package main

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print store statistics for the loaded pattern set",
	Long: `Print store statistics: pattern counts per category, average
strength and the coordinate spread per axis.

Examples:
  fieldmem stats -p patterns.yaml`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	svc, err := newService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()
	return emit(svc.GetStats(cmd.Context()))
}
