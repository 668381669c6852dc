package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"passport-portal/internal/config"
	"passport-portal/internal/events"
	"passport-portal/internal/logging"
	"passport-portal/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New("event-handler", cfg)

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	blob, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
	if err != nil {
		logger.Error("connect minio", "error", err)
		os.Exit(1)
	}

	source := events.NewMinioUploadEventSource(blob.Client(), cfg.MinioBucket, "", "")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	attach := events.AttachHandler(store, logger)
	logger.Info("listening for object-created events", "bucket", cfg.MinioBucket)
	handler := func(parent context.Context, event events.UploadEvent) error {
		execCtx, cancel := context.WithTimeout(parent, 15*time.Second)
		defer cancel()
		return attach(execCtx, event)
	}
	if err := events.RunWithRetry(ctx, source, handler, events.NewReconnectBackOff(), logger); err != nil {
		logger.Error("event-handler stopped with error", "error", err)
		os.Exit(1)
	}
}
