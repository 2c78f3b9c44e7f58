package main

import (
	"os"
	"os/signal"
	"syscall"

	"eventticketing/internal/worker"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the worker that re-verifies stale pending payments and expires abandoned ones`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error("close resources", "error", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.NewSweeper(a.reconciler, a.cfg.Worker.SweepInterval, a.logger).Run(ctx)
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("worker error", "error", err)
		return err
	}
	a.logger.Info("worker shutting down gracefully")
	return nil
}
