package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quillpoint/scraverify/internal/automation"
	"github.com/quillpoint/scraverify/internal/blob"
	"github.com/quillpoint/scraverify/internal/cache"
	"github.com/quillpoint/scraverify/internal/capture"
	"github.com/quillpoint/scraverify/internal/config"
	"github.com/quillpoint/scraverify/internal/events"
	"github.com/quillpoint/scraverify/internal/portal"
	"github.com/quillpoint/scraverify/internal/portal/chrome"
	"github.com/quillpoint/scraverify/internal/server"
	"github.com/quillpoint/scraverify/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the verification server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				store.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (SCRAV_NATS_URL not set)")
		}

		blobs, err := blob.New(cmd.Context(), cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			publisher.Close()
			store.Close()
			return err
		}

		urls := cache.New(cfg.URLCacheTTL)
		verifyServer := server.NewVerifyServer(store, publisher, blobs, urls, nil, cfg.SignedURLTTL)

		// The automation stack publishes through the server so stream
		// clients see runner events too.
		recorder := capture.NewRecorder(store, blobs, verifyServer.Publisher(), logger)

		strategies := portal.Defaults()
		if cfg.PortalURL != "" {
			strategies.FormURL = cfg.PortalURL
		}
		creds := automation.Credentials{
			Username: cfg.PortalUsername,
			Password: cfg.PortalPassword,
		}
		runner := automation.NewRunner(store, recorder, verifyServer.Publisher(), strategies, creds, cfg.StepTimeout, logger)

		factory := func(ctx context.Context) (portal.Target, error) {
			return chrome.New(ctx, chrome.Config{
				DevToolsURL: cfg.DevToolsURL,
				Headless:    cfg.Headless,
			})
		}
		manager := automation.NewManager(runner, factory, cfg.SessionTimeout, cfg.MaxSessions, logger)
		verifyServer.SetLauncher(manager)

		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: verifyServer.NewHTTPHandler(cfg.AuthToken),
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		logger.Info("verification server started",
			"http_addr", cfg.HTTPAddr,
			"portal_url", strategies.FormURL,
			"headless", cfg.Headless,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		// Let in-flight verification runs finish so no session is left
		// without a terminal state.
		manager.Wait()
		logger.Info("automation runs drained")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		// Opening the store applies pending migrations.
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		return store.Close()
	},
}
