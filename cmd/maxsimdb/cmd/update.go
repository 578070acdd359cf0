package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxsimdb/maxsimdb/pkg/engine"
)

func newUpdateCmd() *cobra.Command {
	var docsPath string
	var tenant uint64

	cmd := &cobra.Command{
		Use:   "update <path>",
		Short: "Replace documents in an index by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := engine.Open(args[0], nil)
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}
			defer e.Close()

			docs, err := loadDocsFile(docsPath, e.Schema())
			if err != nil {
				return err
			}

			if err := e.Update(tenant, docs); err != nil {
				return fmt.Errorf("update: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "updated %d documents for tenant %d\n", len(docs), tenant)
			return nil
		},
	}

	cmd.Flags().StringVar(&docsPath, "docs", "", "path to a JSON array of documents (required)")
	cmd.Flags().Uint64Var(&tenant, "tenant", 0, "tenant ID")
	cmd.MarkFlagRequired("docs")
	return cmd
}
