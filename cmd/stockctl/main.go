// stockctl tareas de operación del ledger de stock: migraciones, conciliación, reposición,
// importación del catálogo y el worker de tareas programadas.
//
// Uso: go run ./cmd/stockctl <comando> [flags]
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Bodega-api/internal/app"
	"github.com/jhoicas/Bodega-api/pkg/config"
	"github.com/jhoicas/Bodega-api/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "stockctl",
	Short:         "Operación del ledger de stock de la bodega",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "stockctl: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	return cfg, log, nil
}

// withContainer arma las dependencias, ejecuta fn y libera los recursos.
func withContainer(ctx context.Context, fn func(ctx context.Context, c *app.Container) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := app.Build(ctx, cfg, log.Zerolog())
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Msg("liberar recursos")
		}
	}()
	return fn(ctx, c)
}
