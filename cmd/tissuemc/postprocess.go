package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukaszgryglicki/tissuemc/internal/input"
	"github.com/lukaszgryglicki/tissuemc/internal/simulation"
)

func postprocessCmd() *cobra.Command {
	var inputFolder string
	cmd := &cobra.Command{
		Use:   "postprocess <infile>",
		Short: "Reweight a stored pMC database for the infile perturbations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := input.Load(args[0])
			if err != nil {
				return err
			}
			if inputFolder != "" {
				if in.PostProcessor == nil {
					return fmt.Errorf("%w: infile has no post processor section", input.ErrInvalidInput)
				}
				in.PostProcessor.InputFolder = inputFolder
			}
			rep, err := simulation.PostProcess(in, simConfig())
			if err != nil {
				return fmt.Errorf("postprocess %s: %w", in.OutputName, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records of %d photons reweighted\n", rep.Dir, rep.Records, rep.Photons)
			return nil
		},
	}
	cmd.Flags().StringVar(&inputFolder, "input-folder", "", "folder holding the database (default <outpath>/<outname>)")
	return cmd
}
