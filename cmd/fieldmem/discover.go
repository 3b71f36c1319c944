package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/fieldmem/internal/emergent"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <strategy>",
	Short: "Run one emergent discovery strategy",
	Long: fmt.Sprintf(`Run one discovery strategy against the pattern file and print the
insights it produced. Strategies: %s.

Examples:
  # Hunt for cross-category connections
  fieldmem discover dream -p patterns.yaml

  # Surface overlooked low-confidence patterns
  fieldmem discover dejavu -p patterns.yaml`, strategyNames()),
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	svc, err := newService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	insights, err := svc.TriggerEmergentDiscovery(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return emit(insights)
}

func strategyNames() string {
	names := make([]string, 0, 4)
	for _, s := range emergent.Strategies() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
