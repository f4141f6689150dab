package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/joseph-ayodele/image-factory/constants"
	"github.com/joseph-ayodele/image-factory/internal/blobstore"
	"github.com/joseph-ayodele/image-factory/internal/common"
	"github.com/joseph-ayodele/image-factory/internal/derive"
	"github.com/joseph-ayodele/image-factory/internal/job"
	"github.com/joseph-ayodele/image-factory/internal/pubsub"
	"github.com/joseph-ayodele/image-factory/internal/repository"
)

// DeliveryService handles push deliveries from the queue and the
// dead-letter sink.
type DeliveryService struct {
	jobs    repository.JobRepository
	blobs   blobstore.Store
	deriver derive.Deriver
	client  *http.Client
	logger  *slog.Logger
}

func NewDeliveryService(
	jobs repository.JobRepository,
	blobs blobstore.Store,
	deriver derive.Deriver,
	client *http.Client,
	logger *slog.Logger,
) *DeliveryService {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeliveryService{
		jobs:    jobs,
		blobs:   blobs,
		deriver: deriver,
		client:  client,
		logger:  logger,
	}
}

// HandleDelivery processes one push notification. A returned error tells the
// transport to retry (bounded by its attempt limit, then dead-letter); nil
// acknowledges the message.
func (s *DeliveryService) HandleDelivery(ctx context.Context, hash, sourceURL string) error {
	existing, err := s.jobs.Get(ctx, hash)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		// store outage: let the transport retry, nothing to reconcile yet
		return err
	}

	switch job.OnDelivery(existing) {
	case job.DeliveryDuplicate:
		s.logger.Info("delivery.duplicate", "content_hash", hash, "status", existing.Status)
		return nil
	case job.DeliveryOrphan:
		// persist an ERROR record so the queue does not retry forever
		orphan := job.New(hash, time.Now().UTC())
		orphan.SourceURL = sourceURL
		s.persistError(ctx, orphan, "delivery for unknown job")
		return common.NewAppError("JOB_MISSING",
			fmt.Sprintf("no job record for hash %s", hash), common.ErrInconsistentState)
	}

	src, err := s.fetchSource(ctx, sourceURL)
	if err != nil {
		s.persistError(ctx, existing, err.Error())
		return err
	}

	artifacts, err := s.deriver.Derive(ctx, src, http.DetectContentType(src))
	if err != nil {
		s.persistError(ctx, existing, err.Error())
		return err
	}

	refs, err := s.uploadArtifacts(ctx, hash, artifacts)
	if err != nil {
		s.persistError(ctx, existing, err.Error())
		return err
	}

	existing.SourceURL = sourceURL
	existing.Status = constants.JobStatusSuccess
	existing.Artifacts = refs
	existing.Error = ""
	existing.UpdatedAt = time.Now().UTC()
	if err := s.jobs.Put(ctx, existing); err != nil {
		return err
	}

	s.logger.Info("delivery.success", "content_hash", hash, "artifacts", len(refs))
	return nil
}

// HandleDeadLetter records a delivery that exhausted its retries. It never
// re-attempts derivation, never mutates job state, and never fails.
func (s *DeliveryService) HandleDeadLetter(payload []byte) {
	hash := ""
	if req, err := pubsub.ParsePush(payload); err == nil {
		hash = req.Message.Attributes[pubsub.AttrContentHash]
	}
	s.logger.Warn("delivery.dead_letter",
		"content_hash", hash,
		"payload_bytes", len(payload),
		"payload", string(payload),
	)
}

func (s *DeliveryService) fetchSource(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, common.NewAppError("SOURCE_FETCH_FAILED", err.Error(), common.ErrFetch)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, common.NewAppError("SOURCE_FETCH_FAILED", err.Error(), common.ErrFetch)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, common.NewAppError("SOURCE_FETCH_FAILED",
			fmt.Sprintf("GET %s: status %d", sourceURL, resp.StatusCode), common.ErrFetch)
	}
	src, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.NewAppError("SOURCE_FETCH_FAILED", err.Error(), common.ErrFetch)
	}
	return src, nil
}

func (s *DeliveryService) uploadArtifacts(ctx context.Context, hash string, artifacts []derive.Artifact) ([]job.Artifact, error) {
	refs := make([]job.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if a.Bytes == nil {
			refs = append(refs, job.Artifact{
				Kind:       a.Kind,
				Label:      a.Label,
				Confidence: a.Confidence,
			})
			continue
		}
		key := path.Join("derived", hash, a.Name)
		url, err := s.blobs.Put(ctx, key, bytes.NewReader(a.Bytes), a.ContentType)
		if err != nil {
			return nil, err
		}
		refs = append(refs, job.Artifact{Kind: a.Kind, URL: url})
	}
	return refs, nil
}

// persistError records the terminal failure; artifacts stay empty so the
// client-visible state is never ambiguous.
func (s *DeliveryService) persistError(ctx context.Context, j *job.Job, reason string) {
	j.Status = constants.JobStatusError
	j.Artifacts = nil
	j.Error = reason
	j.UpdatedAt = time.Now().UTC()
	if err := s.jobs.Put(ctx, j); err != nil {
		s.logger.Error("delivery.error_write_failed", "content_hash", j.ContentHash, "error", err)
		return
	}
	s.logger.Warn("delivery.failed", "content_hash", j.ContentHash, "reason", reason)
}
