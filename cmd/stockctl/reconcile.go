package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Bodega-api/internal/app"
	"github.com/jhoicas/Bodega-api/internal/application/dto"
)

var reconcileProduct string

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compara stock, lotes y ledger; termina con error si hay diferencias",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			var reports []*dto.ReconcileReport
			if reconcileProduct != "" {
				rep, err := c.Ledger.Reconcile(ctx, reconcileProduct)
				if err != nil {
					return err
				}
				reports = append(reports, rep)
			} else {
				all, err := c.Ledger.ReconcileAll(ctx)
				if err != nil {
					return err
				}
				reports = all
			}

			out := cmd.OutOrStdout()
			drifted := 0
			for _, r := range reports {
				if r.Consistent {
					continue
				}
				drifted++
				fmt.Fprintf(out, "%s  producto=%s lotes=%s ledger=%s lotes_desalineados=%d\n",
					r.ProductID, r.CachedStock, r.LotsTotal, r.LedgerTotal, len(r.LotDrifts))
			}
			fmt.Fprintf(out, "%d productos conciliados, %d con diferencias\n", len(reports), drifted)
			if drifted > 0 {
				return fmt.Errorf("%d productos con diferencias", drifted)
			}
			return nil
		})
	},
}

func init() {
	reconcileCmd.Flags().StringVarP(&reconcileProduct, "product", "p", "", "conciliar solo este producto (ID)")
	rootCmd.AddCommand(reconcileCmd)
}
