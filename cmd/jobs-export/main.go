package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/image-factory/internal/common"
	"github.com/joseph-ayodele/image-factory/internal/export"
	"github.com/joseph-ayodele/image-factory/internal/repository"
)

func main() {
	out := flag.String("out", "jobs.xlsx", "output workbook path")
	limit := flag.Int("limit", 1000, "maximum job records to export")
	flag.Parse()

	_ = godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

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

	svc := export.NewService(jobs, logger)
	book, err := svc.ExportJobsXLSX(ctx, *limit)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, book, 0o644); err != nil {
		logger.Error("writing workbook", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("export written", "path", *out, "bytes", len(book))
}
