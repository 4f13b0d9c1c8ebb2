package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/justsurfingit/applytrail/internal/config"
	"github.com/justsurfingit/applytrail/internal/di"
	"github.com/justsurfingit/applytrail/internal/services"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	logger *zap.Logger,
	serverCfg config.ServerConfig,
	syncCfg config.SyncConfig,
	router *gin.Engine,
	scheduler *services.Scheduler,
) error {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if syncCfg.Enabled {
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start sync scheduler: %w", err)
		}
		defer scheduler.Stop()
	} else {
		logger.Warn("Mailbox sync scheduler disabled")
	}

	srv := &http.Server{
		Addr:    serverCfg.ListenAddress,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("address", serverCfg.ListenAddress))
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
	case <-ctx.Done():
		logger.Info("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down server", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
