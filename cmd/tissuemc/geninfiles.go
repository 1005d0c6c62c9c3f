package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lukaszgryglicki/tissuemc/internal/input"
)

func geninfilesCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "geninfiles",
		Short: "Write the sample infiles into --outpath",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var ext string
			switch format {
			case "json":
				ext = ".json"
			case "yaml", "yml":
				ext = ".yaml"
			default:
				return fmt.Errorf("%w: unknown format %q", input.ErrInvalidInput, format)
			}
			if err := os.MkdirAll(outputRoot, 0o755); err != nil {
				return err
			}
			for _, in := range input.Samples() {
				path := filepath.Join(outputRoot, "infile_"+in.OutputName+ext)
				if err := in.Save(path); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "infile format: json or yaml")
	return cmd
}
