package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Bodega-api/internal/app"
)

var reorderPublish bool

var reorderCmd = &cobra.Command{
	Use:   "reorder",
	Short: "Lista los productos bajo su umbral de reposición",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			if reorderPublish {
				n, err := c.Reorder.PublishAlerts(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d alertas publicadas\n", n)
				return nil
			}
			items, err := c.Reorder.Generate(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PRIO\tREFERENCIA\tPRODUCTO\tSTOCK\tUMBRAL\tPEDIR\tCOSTO EST.")
			for _, it := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s %s\t%s\n",
					it.Priority, it.Reference, it.ProductName, it.CurrentStock, it.ReorderPoint,
					it.SuggestedOrderQty, it.UnitMeasure, it.EstimatedOrderCost.StringFixed(2))
			}
			return tw.Flush()
		})
	},
}

func init() {
	reorderCmd.Flags().BoolVar(&reorderPublish, "publish", false, "publicar una alerta por producto en lugar de imprimir el reporte")
	rootCmd.AddCommand(reorderCmd)
}
