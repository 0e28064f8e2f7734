package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tony-42069/abare-v2/internal/handler"
	"github.com/tony-42069/abare-v2/pkg/config"
	"github.com/tony-42069/abare-v2/pkg/database"
	"github.com/tony-42069/abare-v2/pkg/jwtutil"
	"github.com/tony-42069/abare-v2/pkg/logger"
	"github.com/tony-42069/abare-v2/pkg/storage"
	"github.com/tony-42069/abare-v2/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer func() { _ = log.Sync() }()
	log.Info("Starting ABARE API...", cfg.LogConfig()...)

	tokens, err := jwtutil.New(jwtutil.Config{
		SigningKey: cfg.JWT.SigningKey,
		Algorithm:  cfg.JWT.Algorithm,
		Expiration: cfg.JWT.Expiration(),
	})
	if err != nil {
		log.Fatal("Failed to initialize token signer", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := newFileStorage(ctx, &cfg.Upload)
	if err != nil {
		log.Fatal("Failed to initialize file storage", zap.Error(err))
	}
	log.Info("File storage ready", zap.String("storage", cfg.Upload.Storage))

	// The primary store connects on the first request
	provider := database.NewProvider(cfg, log)

	prometheus.SetInfo(cfg.App.Version)

	e := handler.NewServer(cfg, log, provider, tokens, files)

	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	if err := provider.Close(shutdownCtx); err != nil {
		log.Error("Failed to close store", zap.Error(err))
	}
	log.Info("Server stopped")
}

func newFileStorage(ctx context.Context, cfg *config.UploadConfig) (storage.Storage, error) {
	if cfg.Storage == config.UploadS3 {
		return storage.NewS3(ctx, cfg)
	}
	return storage.NewLocal(cfg.Directory)
}
