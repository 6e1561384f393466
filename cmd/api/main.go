package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jarvis-backend/infrastructure/config"
	"jarvis-backend/infrastructure/di"

	"go.uber.org/zap"
)

const (
	expiryInterval       = time.Minute
	metricsFlushInterval = time.Minute
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Close()

	go container.Hub.Run()
	go container.Metrics.RunFlusher(ctx, metricsFlushInterval)
	go expireIdleSessions(ctx, container)

	srv := &http.Server{
		Addr:        cfg.ServerAddress,
		Handler:     container.Handler,
		ReadTimeout: 15 * time.Second,
		// a chat turn may call the model twice
		WriteTimeout: 2*cfg.AITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.Bool("gemini_configured", cfg.GeminiAPIKey != ""),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}
	cancel()

	container.Logger.Info("Server stopped")
}

// expireIdleSessions ends idle sessions and prunes rate limiter keys until ctx is done
func expireIdleSessions(ctx context.Context, container *di.Container) {
	ticker := time.NewTicker(expiryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			container.Limiters.Prune()
			expired, err := container.Tutor.ExpireIdleSessions(ctx)
			if err != nil {
				container.Logger.Warn("Session expiry sweep failed", zap.Error(err))
				continue
			}
			if expired > 0 {
				container.Logger.Info("Expired idle sessions", zap.Int("count", expired))
			}
		}
	}
}
