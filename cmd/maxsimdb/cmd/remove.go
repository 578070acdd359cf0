package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/maxsimdb/maxsimdb/pkg/engine"
)

func newRemoveCmd() *cobra.Command {
	var idStrs []string
	var tenant uint64

	cmd := &cobra.Command{
		Use:   "remove <path>",
		Short: "Remove documents from an index by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uint64, len(idStrs))
			for i, s := range idStrs {
				id, err := strconv.ParseUint(s, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid document id %q: %w", s, err)
				}
				ids[i] = id
			}

			e, err := engine.Open(args[0], nil)
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}
			defer e.Close()

			if err := e.Remove(tenant, ids); err != nil {
				return fmt.Errorf("remove: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %d documents from tenant %d\n", len(ids), tenant)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&idStrs, "ids", nil, "comma-separated document IDs to remove (required)")
	cmd.Flags().Uint64Var(&tenant, "tenant", 0, "tenant ID")
	cmd.MarkFlagRequired("ids")
	return cmd
}
