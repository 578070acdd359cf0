package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxsimdb/maxsimdb/pkg/engine"
)

func newMergeCmd() *cobra.Command {
	var fromPath string

	cmd := &cobra.Command{
		Use:   "merge <path>",
		Short: "Merge a compatible foreign index into this one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := engine.Open(args[0], nil)
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}
			defer e.Close()

			if err := e.Merge(fromPath); err != nil {
				return fmt.Errorf("merge: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "merged %s into %s\n", fromPath, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&fromPath, "from", "", "path to the foreign index to merge in (required)")
	cmd.MarkFlagRequired("from")
	return cmd
}
