package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mixtape/internal/config"
	"mixtape/internal/server"
	"mixtape/internal/store"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load .env before the config so env overrides can pick it up
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded environment from .env")
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	configureLogger(logger, &cfg.Logging)

	if cfg.YouTube.APIKey == "" {
		logger.Warn("No YouTube API key configured. Search will return errors until one is set.")
	}

	// Initialize the user store
	userStore, err := store.NewFileStore(cfg.Store.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing user store")
	}
	defer userStore.Close()

	if cfg.Store.WatchForChanges {
		if err := userStore.Watch(); err != nil {
			logger.WithError(err).Warn("Could not watch user store for external changes")
		}
	}

	// Create and configure the server
	srv, err := server.NewServer(cfg, userStore, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error creating server")
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := srv.Start(); err != nil {
			logger.WithError(err).Fatal("Server error")
		}
	}()

	// Wait for shutdown signal
	<-c

	logger.Info("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}

func configureLogger(logger *logrus.Logger, cfg *config.LoggingConfig) {
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}
