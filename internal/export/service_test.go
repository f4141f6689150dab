package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/image-factory/constants"
	"github.com/joseph-ayodele/image-factory/internal/job"
)

type listStub struct {
	jobs []*job.Job
}

func (s *listStub) Get(context.Context, string) (*job.Job, error)  { return nil, nil }
func (s *listStub) Put(context.Context, *job.Job) error            { return nil }
func (s *listStub) List(_ context.Context, limit int) ([]*job.Job, error) {
	if limit > 0 && limit < len(s.jobs) {
		return s.jobs[:limit], nil
	}
	return s.jobs, nil
}

func TestExportJobsXLSX(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	done := job.New("hash-a", now)
	done.Status = constants.JobStatusSuccess
	done.SourceURL = "http://blobs/source/hash-a.png"
	done.Artifacts = []job.Artifact{
		{Kind: constants.ArtifactKindThumbnail, URL: "http://blobs/derived/hash-a/thumb_64.png"},
		{Kind: constants.ArtifactKindLabel, Label: "cat", Confidence: 0.9},
	}

	failed := job.New("hash-b", now)
	failed.Status = constants.JobStatusError
	failed.Error = "derive: bad pixels"

	svc := NewService(&listStub{jobs: []*job.Job{done, failed}}, nil)
	data, err := svc.ExportJobsXLSX(context.Background(), 0)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Jobs")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per job")

	assert.Equal(t, "Content Hash", rows[0][0])
	assert.Equal(t, "hash-a", rows[1][0])
	assert.Equal(t, "SUCCESS", rows[1][1])
	assert.Equal(t, "2", rows[1][3], "artifact count")
	assert.Equal(t, "hash-b", rows[2][0])
	assert.Equal(t, "derive: bad pixels", rows[2][4])
}

func TestExportJobsXLSX_HonorsLimit(t *testing.T) {
	stub := &listStub{}
	for _, h := range []string{"h1", "h2", "h3"} {
		stub.jobs = append(stub.jobs, job.New(h, time.Now().UTC()))
	}

	data, err := NewService(stub, nil).ExportJobsXLSX(context.Background(), 2)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Jobs")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
