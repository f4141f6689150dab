package job

import (
	"encoding/json"
	"time"

	"github.com/joseph-ayodele/image-factory/constants"
	"github.com/joseph-ayodele/image-factory/internal/common"
)

// Artifact is one derived-artifact reference on a job document: either a
// blob URL (thumbnails) or a structured label record (classification).
type Artifact struct {
	Kind       string  `json:"kind"`
	URL        string  `json:"url,omitempty"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Job is the persisted record tracking one content hash's derivation
// lifecycle. ContentHash is the primary key and is immutable once assigned.
// Unknown document fields survive read-modify-write cycles via Extra.
type Job struct {
	ContentHash string
	SourceURL   string
	Status      constants.JobStatus
	Artifacts   []Artifact
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Extra       map[string]json.RawMessage
}

// New creates a fresh PENDING job for hash.
func New(hash string, now time.Time) *Job {
	return &Job{
		ContentHash: hash,
		Status:      constants.JobStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks the document invariants before it is persisted.
// A job must never be readable with status SUCCESS and empty artifacts.
func (j *Job) Validate() error {
	if j.ContentHash == "" {
		return common.NewAppError("JOB_INVALID", "content hash is required", common.ErrValidation)
	}
	if !j.Status.IsValid() {
		return common.NewAppError("JOB_INVALID", "unknown status "+string(j.Status), common.ErrValidation)
	}
	if j.Status == constants.JobStatusSuccess && len(j.Artifacts) == 0 {
		return common.NewAppError("JOB_INVALID", "SUCCESS requires at least one artifact", common.ErrValidation)
	}
	return nil
}

type jobDoc struct {
	ContentHash string              `json:"content_hash"`
	SourceURL   string              `json:"source_url,omitempty"`
	Status      constants.JobStatus `json:"status"`
	Artifacts   []Artifact          `json:"artifacts"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

var knownDocKeys = map[string]struct{}{
	"content_hash": {},
	"source_url":   {},
	"status":       {},
	"artifacts":    {},
	"error":        {},
	"created_at":   {},
	"updated_at":   {},
}

// MarshalJSON renders the document with any preserved extra fields flattened
// back alongside the known ones.
func (j Job) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(jobDoc{
		ContentHash: j.ContentHash,
		SourceURL:   j.SourceURL,
		Status:      j.Status,
		Artifacts:   j.Artifacts,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	})
	if err != nil || len(j.Extra) == 0 {
		return base, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, v := range j.Extra {
		if _, known := knownDocKeys[k]; !known {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes the known fields and retains everything else in Extra.
func (j *Job) UnmarshalJSON(b []byte) error {
	var d jobDoc
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	for k := range knownDocKeys {
		delete(m, k)
	}
	j.ContentHash = d.ContentHash
	j.SourceURL = d.SourceURL
	j.Status = d.Status
	j.Artifacts = d.Artifacts
	j.Error = d.Error
	j.CreatedAt = d.CreatedAt
	j.UpdatedAt = d.UpdatedAt
	if len(m) > 0 {
		j.Extra = m
	} else {
		j.Extra = nil
	}
	return nil
}
