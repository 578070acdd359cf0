package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxsimdb/maxsimdb/pkg/engine"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats <path>",
		Short: "Show schema, training state and key counts for an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := engine.Open(args[0], nil)
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}
			defer e.Close()

			info, err := e.Info()
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "path:    %s\n", info.Path)
			fmt.Fprintf(w, "version: %s\n", info.Version)
			fmt.Fprintf(w, "trained: %t\n", info.Trained)
			fmt.Fprintf(w, "fields:  %d\n", len(info.Schema.Fields))
			for _, f := range info.Schema.Fields {
				fmt.Fprintf(w, "  - %s (%s)\n", f.Name, f.Type)
			}
			fmt.Fprintln(w, "keys per column family:")
			for family, count := range info.KeyCounts {
				fmt.Fprintf(w, "  %s: %d\n", family, count)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output stats as JSON")
	return cmd
}
