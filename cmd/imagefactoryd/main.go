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
	"github.com/joseph-ayodele/image-factory/internal/httpapi"
	"github.com/joseph-ayodele/image-factory/internal/queue"
	"github.com/joseph-ayodele/image-factory/internal/repository"
	"github.com/joseph-ayodele/image-factory/internal/service"
	"github.com/joseph-ayodele/image-factory/internal/worker"
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

	if err := os.MkdirAll(cfg.Storage.Root, 0o755); err != nil {
		logger.Error("creating storage root", "error", err)
		os.Exit(1)
	}
	blobs := &blobstore.LocalFS{Root: cfg.Storage.Root, BaseURL: cfg.Storage.BaseURL}

	publisher := queue.NewHTTPPush(cfg.Queue, logger)
	pool := worker.NewPool(4, 64, logger)

	images := service.NewImageService(jobs, blobs, publisher, pool, cfg.Upload, logger)

	server := &httpapi.Server{
		Images:         images,
		BlobFS:         blobs,
		MaxUploadBytes: cfg.Upload.MaxFileSize,
		Logger:         logger,
	}

	srv := &http.Server{Addr: cfg.Server.APIAddr, Handler: server.APIRouter()}
	go func() {
		logger.Info("api serving", "addr", cfg.Server.APIAddr, "base_url", cfg.Server.BaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// finish detached submissions and in-flight deliveries before exit
	pool.Close()
	publisher.Drain()
	logger.Info("stopped")
}
