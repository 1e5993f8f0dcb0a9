// cmd/datamasker/count.go
package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/data-masker/pkg/datasource"
)

func newCountCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the row count of every configured table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			ds, err := datasource.Provide(ctx, cfg.DataSource, cfg.DataGeneration, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := ds.Close(); err != nil {
					logger.Warn("Failed to close data source", zap.Error(err))
				}
			}()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TABLE\tROWS")
			for _, table := range cfg.Tables {
				count, err := ds.GetCount(ctx, table)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\n", table.FullName(), count)
			}
			return tw.Flush()
		},
	}
}
