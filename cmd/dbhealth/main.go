package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"log/slog"

	"github.com/joseph-ayodele/image-factory/internal/common"
	"github.com/joseph-ayodele/image-factory/internal/repository"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch cfg.Database.Driver {
	case "postgres":
		pool, err := repository.OpenPool(ctx, repository.Config{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			DialTimeout:     cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			log.Fatalf("opening DB: %v", err)
		}
		defer pool.Close()
		if err := repository.HealthCheck(ctx, pool, 1*time.Second, logger); err != nil {
			log.Fatalf("DB health: FAIL (%v)", err)
		}
		log.Println("DB health: OK")
	case "sqlite":
		store, err := repository.OpenSQLite(cfg.Database.SQLitePath, logger)
		if err != nil {
			log.Fatalf("opening sqlite store: %v", err)
		}
		defer store.Close()
		jobs, err := store.List(ctx, 1)
		if err != nil {
			log.Fatalf("sqlite health: FAIL (%v)", err)
		}
		log.Printf("sqlite health: OK (%d sampled)", len(jobs))
	}
}
