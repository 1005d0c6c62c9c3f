package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukaszgryglicki/tissuemc/internal/input"
	"github.com/lukaszgryglicki/tissuemc/internal/simulation"
	"github.com/lukaszgryglicki/tissuemc/internal/sweep"
)

func sweepCmd() *cobra.Command {
	var (
		byCount  string
		byDelta  string
		outName  string
		parallel int
	)
	cmd := &cobra.Command{
		Use:   "sweep <infile>",
		Short: "Run an infile once per value of a swept parameter",
		Long: `Run an infile once per value of a swept parameter.

Parameters: mua<i>, mus<i>, g<i>, n<i>, d<i> for tissue layer i (1-based),
nphot and seed. Each run writes to <outname>_<param>_<value>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (byCount == "") == (byDelta == "") {
				return fmt.Errorf("%w: give exactly one of --sweep and --sweep-delta", sweep.ErrInvalidSweepRange)
			}
			var (
				plan *sweep.Plan
				err  error
			)
			if byCount != "" {
				plan, err = sweep.Parse(byCount, false)
			} else {
				plan, err = sweep.Parse(byDelta, true)
			}
			if err != nil {
				return err
			}
			base, err := input.Load(args[0])
			if err != nil {
				return err
			}
			if err := setOutName(base, outName); err != nil {
				return err
			}
			runs, err := sweep.Expand(base, plan)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			cfg := simConfig()
			return sweep.Run(ctx, runs, parallel, func(ctx context.Context, in *input.SimulationInput) error {
				rep, err := simulation.Run(ctx, in, cfg)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", rep.Dir, rep.Results.Balance)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&byCount, "sweep", "", "parameter,start,stop,count (e.g. mua1,0.01,0.03,3)")
	cmd.Flags().StringVar(&byDelta, "sweep-delta", "", "parameter,start,stop,delta (e.g. mua1,0.01,0.03,0.01)")
	cmd.Flags().StringVar(&outName, "outname", "", "override the infile output name used as the folder prefix")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "sweep iterations run at once (0 uses every CPU)")
	return cmd
}
