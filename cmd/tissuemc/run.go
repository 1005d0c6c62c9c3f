package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/lukaszgryglicki/tissuemc/internal/input"
	"github.com/lukaszgryglicki/tissuemc/internal/simulation"
)

func runCmd() *cobra.Command {
	var outName string
	cmd := &cobra.Command{
		Use:   "run <infile>",
		Short: "Run one simulation infile (JSON or YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := input.Load(args[0])
			if err != nil {
				return err
			}
			if err := setOutName(in, outName); err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			rep, err := simulation.Run(ctx, in, simConfig())
			if err != nil {
				return fmt.Errorf("run %s: %w", in.OutputName, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", rep.Dir, rep.Results.Balance)
			return nil
		},
	}
	cmd.Flags().StringVar(&outName, "outname", "", "override the infile output name")
	return cmd
}

// setOutName replaces the infile output name when name is set.
func setOutName(in *input.SimulationInput, name string) error {
	if name == "" {
		return nil
	}
	in.OutputName = name
	return in.Validate()
}

func simConfig() simulation.Config {
	return simulation.Config{OutputRoot: outputRoot, Workers: workers, Progress: progress, Version: version}
}

// signalContext is cancelled on interrupt so runs stop between histories.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
