/*
Package main is the entry point for the LAN Chat server.

It is responsible for loading configuration, initializing the global logging
system, wiring the identity store, upload storage, and chat hub, setting up the
HTTP server, and gracefully handling operating system interrupt signals
(SIGINT, SIGTERM) to ensure a smooth shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garyxuan/lan-chat/internal/app/chat"
	"github.com/garyxuan/lan-chat/internal/app/identity"
	"github.com/garyxuan/lan-chat/internal/app/storage"
	"github.com/garyxuan/lan-chat/internal/configs"
	"github.com/garyxuan/lan-chat/internal/handler"
	"github.com/garyxuan/lan-chat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("local_storage", cfg.UsesLocalStorage()).
		Bool("database_identity", cfg.DatabaseDSN != "").
		Msg("Configuration loaded successfully")

	if err := cfg.EnsureDirectories(); err != nil {
		logx.Fatal(err, "Failed to create runtime directories")
	}

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Identity store: Postgres when a DSN is configured, local JSON file otherwise.
	var backend identity.Backend
	if cfg.DatabaseDSN != "" {
		backend, err = identity.NewPostgresStore(cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to initialize database identity store")
		}
	} else {
		backend = identity.NewFileStore(cfg.UserDataFile())
	}

	identityService, err := identity.NewService(ctx, backend)
	if err != nil {
		logx.Fatal(err, "Failed to load identity store")
	}

	// Upload storage: S3 bucket when configured, local disk otherwise.
	storageService, err := storage.NewService(storage.ServiceConfig{
		RootDir:           cfg.RootDir,
		PublicBaseURL:     cfg.PublicBaseURL,
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize upload storage")
	}

	hub := chat.NewHub(identityService, cfg.PublicBaseURL)

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Hub:     hub,
		Config:  cfg,
		Storage: storageService,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("LAN Chat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	hub.Shutdown()

	// Flush pending identity writes before exiting.
	if err := identityService.Close(); err != nil {
		logx.Error(err, "Failed to close identity store")
	}

	logx.Info("Server gracefully stopped.")
}
