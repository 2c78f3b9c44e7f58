package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventticketing/internal/adapters/payment"
	deliveryhttp "eventticketing/internal/delivery/http"
	"eventticketing/internal/delivery/http/controllers"
	"eventticketing/internal/worker"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var withSweeper bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start the HTTP API that serves events, registrations and payment callbacks`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&withSweeper, "with-sweeper", false, "also run the pending payment sweeper in this process")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	mux := deliveryhttp.NewRouter(
		controllers.NewEventController(a.logger, a.events),
		controllers.NewRegistrationController(a.logger, a.registrations),
		controllers.NewTransactionController(a.logger, a.reconciler, payment.SignatureHeader),
	)
	srv := &http.Server{
		Addr:              ":" + a.cfg.HTTP.Port,
		Handler:           deliveryhttp.NewHandler(mux, a.logger, a.cfg.HTTP.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server listening", "addr", srv.Addr, "env", a.cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})
	if withSweeper {
		g.Go(func() error {
			return worker.NewSweeper(a.reconciler, a.cfg.Worker.SweepInterval, a.logger).Run(ctx)
		})
	}

	return g.Wait()
}
