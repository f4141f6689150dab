package repository

import (
	"context"
	"encoding/json"

	"github.com/joseph-ayodele/image-factory/internal/common"
	"github.com/joseph-ayodele/image-factory/internal/job"
)

// JobRepository is typed read/modify/write over the job document store.
//
// Put fully overwrites the record keyed by the job's content hash; last
// write wins. There is no compare-and-swap: concurrent writers to the same
// hash can race, which the design accepts because status decisions are
// convergent.
type JobRepository interface {
	// Get returns the job for hash, or common.ErrNotFound when absent.
	// Backend failures surface as common.ErrStoreUnavailable.
	Get(ctx context.Context, hash string) (*job.Job, error)
	// Put validates and fully overwrites the job document.
	Put(ctx context.Context, j *job.Job) error
	// List returns up to limit jobs, most recently updated first.
	List(ctx context.Context, limit int) ([]*job.Job, error)
}

func encodeJob(j *job.Job) ([]byte, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}
	doc, err := json.Marshal(j)
	if err != nil {
		return nil, common.NewAppError("JOB_ENCODE_FAILED", err.Error(), common.ErrValidation)
	}
	return doc, nil
}

func decodeJob(doc []byte) (*job.Job, error) {
	var j job.Job
	if err := json.Unmarshal(doc, &j); err != nil {
		return nil, common.NewAppError("JOB_DECODE_FAILED", err.Error(), common.ErrStoreUnavailable)
	}
	return &j, nil
}
