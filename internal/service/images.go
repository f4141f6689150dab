package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/image-factory/constants"
	"github.com/joseph-ayodele/image-factory/internal/blobstore"
	"github.com/joseph-ayodele/image-factory/internal/common"
	"github.com/joseph-ayodele/image-factory/internal/hashing"
	"github.com/joseph-ayodele/image-factory/internal/job"
	"github.com/joseph-ayodele/image-factory/internal/pubsub"
	"github.com/joseph-ayodele/image-factory/internal/queue"
	"github.com/joseph-ayodele/image-factory/internal/repository"
	"github.com/joseph-ayodele/image-factory/internal/worker"
)

// ImageService drives the submission pipeline and status lookups.
//
// Submit responds as soon as a PENDING record exists; blob upload, message
// publish, and the QUEUED transition run on the worker pool, detached from
// the request. Callers poll or re-submit to observe final status.
type ImageService struct {
	jobs   repository.JobRepository
	blobs  blobstore.Store
	queue  queue.Publisher
	pool   *worker.Pool
	cfg    common.UploadConfig
	logger *slog.Logger
}

func NewImageService(
	jobs repository.JobRepository,
	blobs blobstore.Store,
	q queue.Publisher,
	pool *worker.Pool,
	cfg common.UploadConfig,
	logger *slog.Logger,
) *ImageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageService{
		jobs:   jobs,
		blobs:  blobs,
		queue:  q,
		pool:   pool,
		cfg:    cfg,
		logger: logger,
	}
}

// Submit validates the upload, dedupes by content hash, and admits or
// short-circuits per the job state machine. reprocess is the explicit opt-in
// to restart a job whose last cycle ended in ERROR.
func (s *ImageService) Submit(ctx context.Context, f io.ReadSeeker, contentType string, size int64, reprocess bool) (*job.Job, error) {
	if err := s.validate(contentType, size); err != nil {
		return nil, err
	}

	hash, err := hashing.Hash(f)
	if err != nil {
		return nil, common.NewAppError("HASH_FAILED", err.Error(), common.ErrValidation)
	}

	existing, err := s.jobs.Get(ctx, hash)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	policy := job.AdmissionPolicy{
		StalePendingAfter: s.cfg.StalePendingAfter,
		Reprocess:         reprocess,
	}
	if job.Admit(existing, policy, time.Now().UTC()) == job.AdmitExisting {
		s.logger.Info("submit.short_circuit", "content_hash", hash, "status", existing.Status)
		return existing, nil
	}

	now := time.Now().UTC()
	j := job.New(hash, now)
	if existing != nil {
		// re-admission of a stale PENDING or reprocessed ERROR record keeps
		// its original creation time and opaque extras
		j.CreatedAt = existing.CreatedAt
		j.Extra = existing.Extra
	}
	if err := s.jobs.Put(ctx, j); err != nil {
		return nil, err
	}

	// buffer the upload now: the multipart temp file dies with the request
	data, err := io.ReadAll(f)
	if err != nil {
		s.failJob(ctx, j, fmt.Sprintf("read upload: %v", err))
		return nil, common.NewAppError("READ_FAILED", err.Error(), common.ErrValidation)
	}
	ext := constants.ExtensionForContentType(contentType)

	// the task gets its own copy: the caller keeps reading the returned record
	dispatched := *j
	accepted := s.pool.Submit(func(taskCtx context.Context) error {
		return s.dispatch(taskCtx, &dispatched, data, ext, contentType)
	})
	if !accepted {
		s.failJob(ctx, j, "worker pool closed before dispatch")
		return nil, common.NewAppError("DISPATCH_REJECTED", "background dispatch unavailable", common.ErrQueueUnavailable)
	}

	s.logger.Info("submit.admitted", "content_hash", hash, "size", size, "content_type", contentType)
	return j, nil
}

// Get returns the job for hash, or common.ErrNotFound.
func (s *ImageService) Get(ctx context.Context, hash string) (*job.Job, error) {
	return s.jobs.Get(ctx, hash)
}

// dispatch is the post-response half of submission: upload the source blob,
// publish the derivation message, and move the job to QUEUED. Any failure
// moves the job to ERROR instead of leaving it stuck PENDING.
func (s *ImageService) dispatch(ctx context.Context, j *job.Job, data []byte, ext, contentType string) error {
	key := j.ContentHash
	if ext != "" {
		key += "." + ext
	}
	url, err := s.blobs.Put(ctx, "source/"+key, bytes.NewReader(data), contentType)
	if err != nil {
		s.failJob(ctx, j, fmt.Sprintf("blob upload: %v", err))
		return err
	}

	attrs := map[string]string{
		pubsub.AttrContentHash: j.ContentHash,
		pubsub.AttrSourceURL:   url,
	}
	msgID, err := s.queue.Publish(ctx, []byte(j.ContentHash), attrs)
	if err != nil {
		s.failJob(ctx, j, fmt.Sprintf("publish: %v", err))
		return err
	}

	j.SourceURL = url
	j.Status = constants.JobStatusQueued
	j.UpdatedAt = time.Now().UTC()
	if err := s.jobs.Put(ctx, j); err != nil {
		// the message is already out; the record stays PENDING and either the
		// delivery or stale-PENDING recovery converges it
		s.logger.Error("submit.queued_write_failed", "content_hash", j.ContentHash, "error", err)
		return err
	}

	s.logger.Info("submit.queued", "content_hash", j.ContentHash, "message_id", msgID, "source_url", url)
	return nil
}

func (s *ImageService) failJob(ctx context.Context, j *job.Job, reason string) {
	j.Status = constants.JobStatusError
	j.Artifacts = nil
	j.Error = reason
	j.UpdatedAt = time.Now().UTC()
	if err := s.jobs.Put(ctx, j); err != nil {
		s.logger.Error("submit.error_write_failed", "content_hash", j.ContentHash, "error", err)
		return
	}
	s.logger.Warn("submit.failed", "content_hash", j.ContentHash, "reason", reason)
}

func (s *ImageService) validate(contentType string, size int64) error {
	ct := constants.NormalizeContentType(contentType)
	if _, ok := s.cfg.AllowedContentTypes[ct]; !ok {
		return common.NewAppError("UNSUPPORTED_MEDIA_TYPE",
			fmt.Sprintf("content type %q is not allowed", contentType), common.ErrValidation)
	}
	if size > s.cfg.MaxFileSize {
		return common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("file size %d exceeds limit %d", size, s.cfg.MaxFileSize), common.ErrValidation)
	}
	return nil
}
