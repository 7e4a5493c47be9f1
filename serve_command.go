package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nijaru/yt-transcript/handlers"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ctx)
		},
	}
}

func runServe(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	log, err := ctx.logger(nil)
	if err != nil {
		return err
	}
	svc, err := ctx.service(log)
	if err != nil {
		return err
	}

	var recorder handlers.Recorder
	journal, err := ctx.openJournal()
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
		recorder = journal
	}

	server := handlers.NewServer(cfg,
		handlers.WithHandler(handlers.NewHandler(svc, recorder, log)),
		handlers.WithLogger(log),
	)

	signalCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server error")
	case <-signalCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown error")
		return errors.Wrap(err, "shutdown")
	}
	log.WithField("timeout", cfg.Server.ShutdownTimeout.Duration).Info("Server stopped")

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server error")
	}
	return nil
}
