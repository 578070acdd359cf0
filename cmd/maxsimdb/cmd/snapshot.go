package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxsimdb/maxsimdb/pkg/engine"
)

func newSnapshotCmd() *cobra.Command {
	var destPath string

	cmd := &cobra.Command{
		Use:   "snapshot <path>",
		Short: "Checkpoint an index directory into a destination directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := engine.Open(args[0], nil)
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}
			defer e.Close()

			if err := e.Snapshot(destPath); err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "snapshot of %s written to %s\n", args[0], destPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&destPath, "dest", "", "destination directory for the snapshot (required)")
	cmd.MarkFlagRequired("dest")
	return cmd
}
