package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"idverify/internal/extract"
	"idverify/internal/handlers"
	"idverify/internal/metrics"
	"idverify/internal/ocr"
	"idverify/internal/router"
	"idverify/internal/session"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the verification session HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			log.Info().
				Str("version", Version).
				Str("commit", Commit).
				Str("ocr_provider", string(cfg.OCR.Provider)).
				Msg("Starting idverify")

			m := metrics.New()
			manager := session.NewManager(
				func() (*ocr.Engine, error) { return ocr.NewEngineFromConfig(cfg.OCR) },
				extract.New(cfg.Extract),
				m,
				cfg.Session.TTL,
			)
			defer func() {
				if err := manager.Close(); err != nil {
					log.Error().Err(err).Msg("Failed to close sessions")
				}
			}()

			srv := &http.Server{
				Addr:         cfg.Server.Address,
				Handler:      router.RegisterRouter(handlers.NewSessions(manager, cfg.Server.BodyLimit), m),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  cfg.Server.IdleTimeout,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("address", srv.Addr).Msg("Starting idverify server")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			log.Info().Msg("Server exited")
			return nil
		},
	}
}
