package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-docqa-be/internal/bootstrap"
	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/server"
	"ai-docqa-be/internal/tracer"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer("ai-docqa-backend", cfg.Tracing, sysLogger)

	// 3. Bootstrap Dependencies (Container)
	ctx, cancel := context.WithCancel(context.Background())
	container, err := bootstrap.NewContainer(ctx, cfg, sysLogger)
	if err != nil {
		cancel()
		log.Fatalf("Failed to build container: %v", err)
	}

	// 4. Start Background Services, then clear anything a previous run left
	container.Start(ctx)

	// 5. Run Server
	srv := server.New(cfg, container)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		sysLogger.Info("Main", "Shutting down", map[string]interface{}{"signal": sig.String()})
	case err := <-serverErr:
		sysLogger.Error("Main", "Server stopped", map[string]interface{}{"error": err.Error()})
	}

	// 6. Graceful shutdown
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		sysLogger.Warn("Main", "Server shutdown incomplete", map[string]interface{}{"error": err.Error()})
	}
	if err := container.ChatbotService.Sweep(shutdownCtx); err != nil {
		sysLogger.Error("Main", "Shutdown sweep failed", map[string]interface{}{"error": err.Error()})
	}
	cancel()
	container.Close()
	if err := shutdownTracer(shutdownCtx); err != nil {
		sysLogger.Warn("Main", "Tracer shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}
