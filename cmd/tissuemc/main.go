package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lukaszgryglicki/tissuemc/internal/logging"
)

// Flags shared by every command.
var (
	outputRoot string
	workers    int
	progress   bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "tissuemc",
		Short:        "Monte Carlo photon transport in layered and voxel tissue",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVarP(&outputRoot, "outpath", "o", ".", "parent folder of the run output folders")
	root.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "transport workers per run (0 keeps the infile value)")
	root.PersistentFlags().BoolVar(&progress, "progress", os.Getenv("PROGRESS") != "", "log [PROGRESS] every 1% of histories")
	root.AddCommand(runCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(postprocessCmd())
	root.AddCommand(geninfilesCmd())
	root.AddCommand(dbexportCmd())
	root.AddCommand(versionCmd())
	return root
}

func main() {
	logging.SetDebug(os.Getenv("DEBUG") != "")
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
