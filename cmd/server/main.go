// Package main is the entry point for the bot maker API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/obot-platform/botmaker/internal/config"
	"github.com/obot-platform/botmaker/internal/handler"
	"github.com/obot-platform/botmaker/internal/identity"
	"github.com/obot-platform/botmaker/internal/logger"
	"github.com/obot-platform/botmaker/internal/version"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Close() }()

	provider := newProvider(cfg)
	log.Info("identity provider configured", "provider", cfg.Identity.Provider)

	h := handler.New(cfg, provider, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.NewRouter(h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Server.Port, "version", version.Get())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down server...")
	case err := <-errCh:
		log.Error("server failed", "error", err)
		_ = log.Close()
		os.Exit(1)
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		return
	}

	log.Info("server stopped")
}

// newProvider builds the configured identity provider. Config validation has
// already rejected unknown kinds and missing credentials.
func newProvider(cfg *config.Config) identity.Provider {
	client := &http.Client{Timeout: cfg.Identity.Timeout}

	switch cfg.Identity.Provider {
	case config.ProviderDiscord:
		return identity.NewDiscordProvider(identity.DiscordConfig{
			ClientID:     cfg.Identity.DiscordClientID,
			ClientSecret: cfg.Identity.DiscordClientSecret,
			APIURL:       cfg.Identity.DiscordAPIURL,
			AuthorizeURL: cfg.Identity.DiscordAuthorizeURL,
			HTTPClient:   client,
		})
	default:
		return identity.NewSupabaseProvider(identity.SupabaseConfig{
			URL:        cfg.Identity.SupabaseURL,
			ServiceKey: cfg.Identity.SupabaseServiceKey,
			HTTPClient: client,
		})
	}
}
