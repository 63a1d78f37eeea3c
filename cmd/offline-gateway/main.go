package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/offline"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(slog.LevelInfo)
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	upstream, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		logger.Error("Invalid upstream URL", "error", err, "url", cfg.UpstreamURL)
		os.Exit(1)
	}

	manager := offline.New(offline.NewStorage(), upstream, cfg.CacheVersion, cfg.OfflineManifest, logger)

	// Pre-cache the asset manifest before accepting traffic; a partial
	// cache would defeat the point of the gateway.
	installCtx, installCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer installCancel()
	if err := manager.Install(installCtx); err != nil {
		logger.Error("Offline install failed", "error", err, "generation", manager.Generation())
		os.Exit(1)
	}
	if err := manager.Activate(installCtx); err != nil {
		logger.Error("Offline activation failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Offline cache ready", "generation", manager.Generation(), "assets", len(cfg.OfflineManifest))

	srv := &http.Server{
		Addr:         ":" + cfg.GatewayPort,
		Handler:      manager,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Gateway shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting offline gateway", "port", cfg.GatewayPort, "upstream", upstream.String())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Gateway error", "error", err, "port", cfg.GatewayPort)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Gateway stopped gracefully")
}
