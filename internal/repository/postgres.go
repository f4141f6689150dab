package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/image-factory/internal/common"
	"github.com/joseph-ayodele/image-factory/internal/job"
)

const jobsTableDDL = `
CREATE TABLE IF NOT EXISTS image_jobs (
  content_hash TEXT PRIMARY KEY,
  doc          JSONB NOT NULL,
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type postgresJobRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresJobRepository ensures the jobs table exists and returns the
// Postgres-backed JobRepository.
func NewPostgresJobRepository(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (JobRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := pool.Exec(ctx, jobsTableDDL); err != nil {
		logger.Error("failed to ensure image_jobs table", "error", err)
		return nil, common.NewAppError("STORE_INIT_FAILED", err.Error(), common.ErrStoreUnavailable)
	}
	return &postgresJobRepo{pool: pool, logger: logger}, nil
}

func (r *postgresJobRepo) Get(ctx context.Context, hash string) (*job.Job, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx,
		`SELECT doc FROM image_jobs WHERE content_hash = $1`, hash,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get job", "content_hash", hash, "error", err)
		return nil, common.NewAppError("STORE_GET_FAILED", err.Error(), common.ErrStoreUnavailable)
	}
	return decodeJob(doc)
}

func (r *postgresJobRepo) Put(ctx context.Context, j *job.Job) error {
	doc, err := encodeJob(j)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO image_jobs (content_hash, doc, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (content_hash)
		 DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
		j.ContentHash, doc, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("failed to put job", "content_hash", j.ContentHash, "error", err)
		return common.NewAppError("STORE_PUT_FAILED", err.Error(), common.ErrStoreUnavailable)
	}
	return nil
}

func (r *postgresJobRepo) List(ctx context.Context, limit int) ([]*job.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT doc FROM image_jobs ORDER BY updated_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		r.logger.Error("failed to list jobs", "error", err)
		return nil, common.NewAppError("STORE_LIST_FAILED", err.Error(), common.ErrStoreUnavailable)
	}
	defer rows.Close()

	var out []*job.Job
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, common.NewAppError("STORE_LIST_FAILED", err.Error(), common.ErrStoreUnavailable)
		}
		j, err := decodeJob(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("STORE_LIST_FAILED", err.Error(), common.ErrStoreUnavailable)
	}
	return out, nil
}
