package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxsimdb/maxsimdb/pkg/engine"
)

func newAddCmd() *cobra.Command {
	var docsPath string
	var tenant uint64

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Add documents to an index",
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

			if err := e.Add(tenant, docs); err != nil {
				return fmt.Errorf("add: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added %d documents to tenant %d\n", len(docs), tenant)
			return nil
		},
	}

	cmd.Flags().StringVar(&docsPath, "docs", "", "path to a JSON array of documents (required)")
	cmd.Flags().Uint64Var(&tenant, "tenant", 0, "tenant ID")
	cmd.MarkFlagRequired("docs")
	return cmd
}
