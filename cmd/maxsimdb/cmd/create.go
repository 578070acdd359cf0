package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxsimdb/maxsimdb/pkg/engine"
)

func newCreateCmd() *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "create <path>",
		Short: "Create a new index directory from a schema file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSchemaFile(schemaPath)
			if err != nil {
				return err
			}

			e, err := engine.Create(args[0], s, nil)
			if err != nil {
				return fmt.Errorf("create index: %w", err)
			}
			defer e.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "created index at %s (%d fields)\n", args[0], len(s.Fields))
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the YAML schema declaration (required)")
	cmd.MarkFlagRequired("schema")
	return cmd
}
