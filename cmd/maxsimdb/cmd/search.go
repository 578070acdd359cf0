package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxsimdb/maxsimdb/pkg/engine"
	"github.com/maxsimdb/maxsimdb/pkg/retriever"
)

func newSearchCmd() *cobra.Command {
	var queryPath string
	var field string
	var tenant uint64
	var k int
	var storedFields []string
	var jsonOutput bool
	var opts retriever.Options

	cmd := &cobra.Command{
		Use:   "search <path>",
		Short: "Run a late-interaction search against an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := loadQueryFile(queryPath)
			if err != nil {
				return err
			}

			e, err := engine.Open(args[0], nil)
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}
			defer e.Close()

			results, err := e.Search(cmd.Context(), tenant, field, q, k, opts, storedFields)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. doc %d (score %.4f)\n", i+1, r.DocID, r.Score)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&queryPath, "query", "", "path to a JSON array of query token rows (required)")
	cmd.Flags().StringVar(&field, "field", "", "indexed tensor field to search (required)")
	cmd.Flags().Uint64Var(&tenant, "tenant", 0, "tenant ID")
	cmd.Flags().IntVar(&k, "k", 10, "number of results to return")
	cmd.Flags().StringSliceVar(&storedFields, "stored", nil, "stored fields to resolve for each result")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output results as JSON")
	cmd.Flags().IntVar(&opts.NProbe, "n-probe", 0, "override: nearest centroids gathered per query token")
	cmd.Flags().IntVar(&opts.KTopCentroids, "k-top-centroids", 0, "override: centroid scores kept per query token")
	cmd.Flags().Float32Var(&opts.CentroidScoreThreshold, "centroid-score-threshold", 0, "override: minimum centroid score contributing to the pre-filter")
	cmd.Flags().IntVar(&opts.NumSecondPass, "num-second-pass", 0, "override: candidate count surviving the pre-filter")
	cmd.Flags().IntVar(&opts.NearestTokensToFetch, "nearest-tokens", 0, "override: nearest_tokens_to_fetch (not read by the search pipeline)")
	cmd.MarkFlagRequired("query")
	cmd.MarkFlagRequired("field")
	return cmd
}
