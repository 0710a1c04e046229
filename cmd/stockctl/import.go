package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Bodega-api/internal/app"
	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/jhoicas/Bodega-api/internal/infrastructure/catalog"
)

var (
	importFile   string
	importLatin1 bool
)

var importCmd = &cobra.Command{
	Use:   "products:import",
	Short: "Importa el catálogo de productos desde CSV (el stock inicial siempre es 0)",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(importFile)
		if err != nil {
			return fmt.Errorf("abrir CSV: %w", err)
		}
		defer f.Close()

		reqs, rowErrs, err := catalog.ReadProducts(f, catalog.Options{Latin1: importLatin1})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, re := range rowErrs {
			fmt.Fprintf(out, "  [warn] %s\n", re.Error())
		}

		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			created, skipped := 0, 0
			for _, req := range reqs {
				if _, err := c.Products.Create(ctx, req); err != nil {
					if errors.Is(err, domain.ErrDuplicate) {
						skipped++
						continue
					}
					if domain.IsValidation(err) {
						fmt.Fprintf(out, "  [warn] %s: %v\n", req.Reference, err)
						skipped++
						continue
					}
					return fmt.Errorf("producto %s: %w", req.Reference, err)
				}
				created++
			}
			fmt.Fprintf(out, "filas CSV: %d, creados: %d, omitidos: %d, rechazados: %d\n",
				len(reqs)+len(rowErrs), created, skipped, len(rowErrs))
			return nil
		})
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "products.csv", "ruta del CSV")
	importCmd.Flags().BoolVar(&importLatin1, "latin1", false, "el archivo está en ISO-8859-1")
	rootCmd.AddCommand(importCmd)
}
