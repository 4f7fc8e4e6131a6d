/*
Package main is the entry point for the OnlyFriends server.

It is responsible for loading configuration, initializing the global logging
system, connecting to PostgreSQL and object storage, starting the standing
chat room, and gracefully handling operating system interrupt signals
(SIGINT, SIGTERM) to ensure a smooth server shutdown.
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

	"onlyfriends/internal/app/audit"
	"onlyfriends/internal/app/bot"
	"onlyfriends/internal/app/chat"
	"onlyfriends/internal/app/db"
	"onlyfriends/internal/app/storage"
	"onlyfriends/internal/app/user"
	"onlyfriends/internal/configs"
	"onlyfriends/internal/handler"
	"onlyfriends/internal/pkg/logx"
	"onlyfriends/internal/pkg/pow"
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
		Str("room", cfg.RoomName).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("pow_difficulty", cfg.PowDifficulty).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL and apply migrations
	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize database")
	}
	defer pool.Close()

	users := user.NewStore(pool)

	// Audit trail, warmed from the last persisted entries
	auditStore := audit.NewStore(pool)
	trail := audit.NewTrail(auditStore)
	if recent, err := auditStore.ListRecent(ctx, audit.MaxEntries); err != nil {
		logx.Error(err, "Failed to warm audit trail, starting empty")
	} else {
		trail.Seed(recent)
	}

	// Object storage for avatars
	storageService, err := storage.NewService(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize storage service")
	}

	// Bot collaborator. Without an API key the room runs bot-less.
	var botClient bot.Client
	if cfg.GeminiAPIKey != "" {
		botClient = bot.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	} else {
		logx.Warn("GEMINI_API_KEY not set, bot collaborator disabled")
	}

	// Start the standing room
	manager := chat.NewManager(cfg, users, trail, botClient)

	powManager := pow.NewPoWManager(cfg.PowDifficulty)

	deps := &handler.AppDeps{
		Manager: manager,
		Config:  cfg,
		Storage: storageService,
		Users:   users,
		Trail:   trail,
		Pow:     powManager,
	}

	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("OnlyFriends server starting on http://localhost%s", serverAddr))
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

	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
}
