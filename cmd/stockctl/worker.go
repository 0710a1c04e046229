package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Bodega-api/internal/app"
)

var workerJob string

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Ejecuta las tareas programadas (o una sola con --job)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return withContainer(ctx, func(ctx context.Context, c *app.Container) error {
			sched, err := c.Scheduler()
			if err != nil {
				return err
			}
			if workerJob != "" {
				return sched.RunNow(ctx, workerJob)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scheduler iniciado con %v. Ctrl+C para salir.\n", sched.Jobs())
			sched.Start()
			<-ctx.Done()
			<-sched.Stop().Done()
			return nil
		})
	},
}

func init() {
	workerCmd.Flags().StringVarP(&workerJob, "job", "j", "", "ejecutar una sola tarea por nombre y salir")
	rootCmd.AddCommand(workerCmd)
}
