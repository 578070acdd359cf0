package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxsimdb/maxsimdb/pkg/engine"
)

func newTrainCmd() *cobra.Command {
	var samplesPath string

	cmd := &cobra.Command{
		Use:   "train <path>",
		Short: "Train an index's coarse quantizers and residual codecs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := engine.Open(args[0], nil)
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}
			defer e.Close()

			samples, err := loadSamplesFile(samplesPath)
			if err != nil {
				return err
			}

			if err := e.Train(samples); err != nil {
				return fmt.Errorf("train: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "trained index at %s on %d samples\n", args[0], len(samples))
			return nil
		},
	}

	cmd.Flags().StringVar(&samplesPath, "samples", "", "path to a JSON array of training samples (required)")
	cmd.MarkFlagRequired("samples")
	return cmd
}
