package repository

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/image-factory/internal/common"
)

// FromConfig opens the job store selected by the database configuration and
// returns it with a close function.
func FromConfig(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (JobRepository, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := OpenPool(ctx, Config{
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
			DialTimeout:     cfg.DialTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		repo, err := NewPostgresJobRepository(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, common.NewAppError("STORE_INIT_FAILED", err.Error(), common.ErrStoreUnavailable)
		}
		store, err := OpenSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
	return nil, nil, common.NewAppError("CONFIG_ERROR", "unknown database driver "+cfg.Driver, common.ErrValidation)
}
