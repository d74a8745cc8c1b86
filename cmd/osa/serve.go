package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func buildServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the OSA core: HTTP event stream, scheduler, and heartbeat",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	return cmd
}

func runServe(parent context.Context) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("osa serve: %w", err)
	}
	defer app.Close(context.Background())

	app.logger.Info("starting osa core", "home", app.cfg.Home, "listen_addr", app.cfg.ListenAddr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/events", app.auth.Middleware(newEventStreamHandler(app.bus, app.logger)))

	server := &http.Server{
		Addr:              app.cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	listener, err := net.Listen("tcp", app.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("osa serve: listen %s: %w", app.cfg.ListenAddr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	app.scheduler.Start(ctx)
	app.heartbeat.Start(ctx)
	go func() {
		if err := app.scheduler.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Warn("scheduler watch stopped", "error", err)
		}
	}()

	app.logger.Info("osa core ready", "addr", app.cfg.ListenAddr)

	select {
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("osa serve: http server: %w", err)
		}
	}

	app.scheduler.Stop()
	app.heartbeat.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("osa serve: graceful shutdown: %w", err)
	}
	return nil
}
