package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/image-factory/internal/common"
	"github.com/joseph-ayodele/image-factory/internal/derive"
	"github.com/joseph-ayodele/image-factory/internal/hashing"
	"github.com/joseph-ayodele/image-factory/internal/job"
)

func mustHash(t *testing.T, body string) string {
	t.Helper()
	h, err := hashing.Hash(strings.NewReader(body))
	require.NoError(t, err)
	return h
}

type fakeRepo struct {
	mu      sync.Mutex
	docs    map[string]job.Job
	getErr  error
	putErr  error
	putSeen int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{docs: make(map[string]job.Job)}
}

func (r *fakeRepo) Get(_ context.Context, hash string) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	j, ok := r.docs[hash]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := j
	return &out, nil
}

func (r *fakeRepo) Put(_ context.Context, j *job.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putSeen++
	if r.putErr != nil {
		return r.putErr
	}
	if err := j.Validate(); err != nil {
		return err
	}
	r.docs[j.ContentHash] = *j
	return nil
}

func (r *fakeRepo) List(_ context.Context, limit int) ([]*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*job.Job, 0, len(r.docs))
	for _, j := range r.docs {
		if limit > 0 && len(out) == limit {
			break
		}
		c := j
		out = append(out, &c)
	}
	return out, nil
}

func (r *fakeRepo) snapshot(hash string) (job.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.docs[hash]
	return j, ok
}

func (r *fakeRepo) seed(j *job.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[j.ContentHash] = *j
}

type fakeBlob struct {
	mu     sync.Mutex
	puts   map[string][]byte
	putErr error
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{puts: make(map[string][]byte)}
}

func (b *fakeBlob) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return "", b.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.puts[key] = data
	return "http://blobs/" + key, nil
}

func (b *fakeBlob) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.puts)
}

type fakePublisher struct {
	mu         sync.Mutex
	published  []map[string]string
	publishErr error
}

func (p *fakePublisher) Publish(_ context.Context, _ []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return "", p.publishErr
	}
	p.published = append(p.published, attrs)
	return "m-1", nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type fakeDeriver struct {
	mu        sync.Mutex
	calls     int
	artifacts []derive.Artifact
	err       error
}

func (d *fakeDeriver) Derive(_ context.Context, _ []byte, _ string) ([]derive.Artifact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.artifacts, nil
}

func (d *fakeDeriver) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
