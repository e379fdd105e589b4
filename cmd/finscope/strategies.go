package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStrategiesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the built-in and configured backtest strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.config()
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			defs, err := catalog.List(cmd.Context())
			if err != nil {
				return err
			}
			if root.asJSON {
				return printJSON(cmd.OutOrStdout(), defs)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tENTRY\tEXIT\tDESCRIPTION")
			for _, d := range defs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Entry.Kind, d.Exit.Kind, d.Description)
			}
			return tw.Flush()
		},
	}
}
