package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/abdullayevf/chat-app/auth"
	"github.com/abdullayevf/chat-app/broadcast"
	"github.com/abdullayevf/chat-app/gateway"
	"github.com/abdullayevf/chat-app/httpapi"
	"github.com/abdullayevf/chat-app/internal"
	"github.com/abdullayevf/chat-app/moderation"
	"github.com/abdullayevf/chat-app/observability"
	"github.com/abdullayevf/chat-app/presence"
	"github.com/abdullayevf/chat-app/repositories"
	"github.com/abdullayevf/chat-app/runtime/workers"
	"github.com/abdullayevf/chat-app/services"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the server application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer executes before the process
// exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Core components
	stats := observability.NewStats()
	registry := presence.NewRegistry()
	messageRepository := repositories.NewMessageRepository(db, log)
	userRepository := repositories.NewUserRepository(db)

	moderator, err := moderation.NewModerator(moderation.DefaultWords(), replacement, log)
	if err != nil {
		return exitRuntime, fmt.Errorf("moderation setup failed: %w", err)
	}

	engine := broadcast.NewEngine(log, registry, messageRepository, moderator, stats, config.SinkTimeout)

	// 4. Authentication & services
	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	verifier := auth.NewVerifier(tokens)
	resolver := services.NewIdentityResolver(userRepository)
	authService := services.NewAuthService(userRepository, tokens)
	messageService := services.NewMessageService(messageRepository)

	// 5. HTTP surface
	gw := gateway.NewGateway(log, engine, verifier, resolver, stats,
		config.SendBufferSize, config.WriteTimeout, config.AllowedOrigin)
	handler := httpapi.NewHandler(log, authService, messageService)
	router := httpapi.NewRouter(handler, gw, verifier)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Background workers under supervision
	sup := workers.NewSupervisor(log)
	sup.Add(workers.NewStatsReporterWorker(log, stats, registry, config.StatsInterval))
	go sup.Run(ctx)

	if config.DebugPort > 0 {
		internal.StartDebugServer(db, config.DebugPort, "/inspect", internal.MessageMapper, stats.Snapshot)
		log.Info("Debug inspector started", "port", config.DebugPort)
	}

	// 8. HTTP server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 10. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return exitOK, nil
}
