package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/image-factory/internal/common"
	"github.com/joseph-ayodele/image-factory/internal/job"
)

// SQLiteStore is the local job record store used for development and tests.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (and migrates) the sqlite job store at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.NewAppError("STORE_INIT_FAILED", err.Error(), common.ErrStoreUnavailable)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS image_jobs (
  content_hash TEXT PRIMARY KEY,
  doc          TEXT NOT NULL,
  updated_at   INTEGER NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, common.NewAppError("STORE_INIT_FAILED", err.Error(), common.ErrStoreUnavailable)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Get(ctx context.Context, hash string) (*job.Job, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM image_jobs WHERE content_hash = ?`, hash,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		s.logger.Error("failed to get job", "content_hash", hash, "error", err)
		return nil, common.NewAppError("STORE_GET_FAILED", err.Error(), common.ErrStoreUnavailable)
	}
	return decodeJob([]byte(doc))
}

func (s *SQLiteStore) Put(ctx context.Context, j *job.Job) error {
	doc, err := encodeJob(j)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO image_jobs (content_hash, doc, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(content_hash)
		 DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		j.ContentHash, string(doc), time.Now().UnixMilli(),
	)
	if err != nil {
		s.logger.Error("failed to put job", "content_hash", j.ContentHash, "error", err)
		return common.NewAppError("STORE_PUT_FAILED", err.Error(), common.ErrStoreUnavailable)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*job.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM image_jobs ORDER BY updated_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		s.logger.Error("failed to list jobs", "error", err)
		return nil, common.NewAppError("STORE_LIST_FAILED", err.Error(), common.ErrStoreUnavailable)
	}
	defer rows.Close()

	var out []*job.Job
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, common.NewAppError("STORE_LIST_FAILED", err.Error(), common.ErrStoreUnavailable)
		}
		j, err := decodeJob([]byte(doc))
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
