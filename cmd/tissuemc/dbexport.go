package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lukaszgryglicki/tissuemc/internal/database"
)

func dbexportCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "dbexport <run folder>",
		Short: "Copy a pMC database into SQLite for ad-hoc queries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if dsn == "" {
				dsn = filepath.Join(dir, "database.sqlite")
			}
			ctx, stop := signalContext()
			defer stop()
			n, err := database.ExportSQLite(ctx, dir, dsn)
			if err != nil {
				return fmt.Errorf("exporting %s: %w", dir, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d histories\n", dsn, n)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "SQLite file (default <run folder>/database.sqlite)")
	return cmd
}
