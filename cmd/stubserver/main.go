package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Martin-d-abloh/proyecto-academia/config"
	"github.com/Martin-d-abloh/proyecto-academia/pkg/logger"
	"github.com/Martin-d-abloh/proyecto-academia/stubserver"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// .env overrides are optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	if cfg.Stub.JWTSecret == "" {
		slog.Error("stub jwt secret is not configured; set stub.jwt_secret or JWT_SECRET_KEY")
		os.Exit(1)
	}

	blobs, err := buildBlobStore(cfg)
	if err != nil {
		slog.Error("failed to initialize upload storage", "error", err)
		os.Exit(1)
	}

	store := stubserver.NewStore()
	if err := stubserver.Seed(&cfg.Stub, store); err != nil {
		slog.Error("failed to seed accounts", "error", err)
		os.Exit(1)
	}

	router := stubserver.NewRouter(&cfg.Stub, store, blobs)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Stub.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("stub backend starting", "port", cfg.Stub.Port, "storage", cfg.Stub.Storage)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

func buildBlobStore(cfg *config.Config) (stubserver.BlobStore, error) {
	switch cfg.Stub.Storage {
	case "", "memory":
		return stubserver.NewMemoryBlobStore(), nil
	case "minio":
		blobs, err := stubserver.NewMinioBlobStore(&cfg.Stub.Minio)
		if err != nil {
			return nil, err
		}
		if err := blobs.EnsureBucket(context.Background()); err != nil {
			return nil, err
		}
		return blobs, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Stub.Storage)
	}
}
