package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/image-factory/internal/blobstore"
	"github.com/joseph-ayodele/image-factory/internal/common"
	"github.com/joseph-ayodele/image-factory/internal/derive"
	"github.com/joseph-ayodele/image-factory/internal/httpapi"
	"github.com/joseph-ayodele/image-factory/internal/repository"
	"github.com/joseph-ayodele/image-factory/internal/service"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	jobs, closeStore, err := repository.FromConfig(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("opening job store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	blobs := &blobstore.LocalFS{Root: cfg.Storage.Root, BaseURL: cfg.Storage.BaseURL}

	deriver := derive.Multi{
		derive.Thumbnailer{Sizes: cfg.Derive.ThumbnailSizes, Logger: logger},
	}
	if cfg.Derive.InferenceURL != "" {
		deriver = append(deriver, derive.Classifier{
			Client: &http.Client{Timeout: cfg.Derive.Timeout},
			URL:    cfg.Derive.InferenceURL,
			APIKey: cfg.Derive.InferenceKey,
			TopN:   cfg.Derive.NumLabels,
			Logger: logger,
		})
	} else {
		logger.Info("classifier disabled (no inference endpoint configured)")
	}

	delivery := service.NewDeliveryService(jobs, blobs, deriver, nil, logger)

	server := &httpapi.Server{Delivery: delivery, Logger: logger}
	srv := &http.Server{Addr: cfg.Server.WorkerAddr, Handler: server.WorkerRouter()}
	go func() {
		logger.Info("worker serving", "addr", cfg.Server.WorkerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
