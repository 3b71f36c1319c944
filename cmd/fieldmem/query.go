package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/fieldmem/internal/pattern"
)

var (
	queryType        string
	queryConfidence  float64
	queryExploration float64
	queryCategory    string
	queryComplexity  float64
	queryMaxResults  int
	queryAllTags     []string
	queryAnyTags     []string
	queryNotTags     []string
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Run one typed query against the loaded pattern set",
	Long: `Run one query against the pattern file and print the unified result.

Examples:
  # Discovery query from free-form text
  fieldmem query -p patterns.yaml "redis cache invalidation"

  # Precision query in a category
  fieldmem query -p patterns.yaml --type precision --category caching --confidence 0.9

  # Creative query requiring a tag and excluding another
  fieldmem query -p patterns.yaml --type creative --all-tags redis --not-tags deprecated`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryType, "type", string(pattern.QueryDiscovery), "query type (precision, discovery, creative, hybrid)")
	queryCmd.Flags().Float64Var(&queryConfidence, "confidence", 0.5, "weight of the exact-index contribution [0,1]")
	queryCmd.Flags().Float64Var(&queryExploration, "exploration", 0.5, "field width dial [0,1]")
	queryCmd.Flags().StringVar(&queryCategory, "category", "", "seed category")
	queryCmd.Flags().Float64Var(&queryComplexity, "complexity", -1, "seed complexity [0,10]")
	queryCmd.Flags().IntVar(&queryMaxResults, "max-results", 0, "result cap (0 = default)")
	queryCmd.Flags().StringSliceVar(&queryAllTags, "all-tags", nil, "keep memories carrying every listed tag")
	queryCmd.Flags().StringSliceVar(&queryAnyTags, "any-tags", nil, "keep memories carrying at least one listed tag")
	queryCmd.Flags().StringSliceVar(&queryNotTags, "not-tags", nil, "drop memories carrying any listed tag")
}

func runQuery(cmd *cobra.Command, args []string) error {
	svc, err := newService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	q := pattern.MemoryQuery{
		Type:        pattern.QueryType(queryType),
		Confidence:  queryConfidence,
		Exploration: queryExploration,
		MaxResults:  queryMaxResults,
	}
	if len(args) == 1 {
		q.Text = args[0]
	}
	if queryCategory != "" || queryComplexity >= 0 {
		sig := &pattern.HarmonicSignature{Category: pattern.Category(queryCategory)}
		if queryComplexity >= 0 {
			c := queryComplexity
			sig.Complexity = &c
		}
		q.HarmonicSignature = sig
	}

	var ops []pattern.LogicOperation
	if len(queryAllTags) > 0 {
		ops = append(ops, pattern.LogicOperation{Type: pattern.OpAnd, Params: queryAllTags})
	}
	if len(queryAnyTags) > 0 {
		ops = append(ops, pattern.LogicOperation{Type: pattern.OpOr, Params: queryAnyTags})
	}
	if len(queryNotTags) > 0 {
		ops = append(ops, pattern.LogicOperation{Type: pattern.OpNot, Params: queryNotTags})
	}

	res, err := svc.Query(cmd.Context(), q, ops...)
	if err != nil {
		return err
	}
	return emit(res)
}
