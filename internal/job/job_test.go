package job

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/image-factory/constants"
)

func TestJob_ExtraFieldsSurviveRoundTrip(t *testing.T) {
	doc := []byte(`{
		"content_hash": "h1",
		"status": "QUEUED",
		"source_url": "http://blobs/h1.png",
		"artifacts": [],
		"created_at": "2026-01-02T03:04:05Z",
		"updated_at": "2026-01-02T03:04:06Z",
		"tenant": "acme",
		"trace": {"id": 42}
	}`)

	var j Job
	require.NoError(t, json.Unmarshal(doc, &j))

	assert.Equal(t, "h1", j.ContentHash)
	assert.Equal(t, constants.JobStatusQueued, j.Status)
	require.Contains(t, j.Extra, "tenant")
	require.Contains(t, j.Extra, "trace")

	// modify a known field, re-encode, and check the extras are still there
	j.Status = constants.JobStatusError
	j.Error = "derivation failed"
	out, err := json.Marshal(j)
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &m))
	assert.JSONEq(t, `"acme"`, string(m["tenant"]))
	assert.JSONEq(t, `{"id": 42}`, string(m["trace"]))
	assert.JSONEq(t, `"ERROR"`, string(m["status"]))
}

func TestJob_ExtraNeverShadowsKnownFields(t *testing.T) {
	j := New("h2", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	j.Extra = map[string]json.RawMessage{
		"status": json.RawMessage(`"SUCCESS"`),
		"note":   json.RawMessage(`"kept"`),
	}

	out, err := json.Marshal(*j)
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &m))
	assert.JSONEq(t, `"PENDING"`, string(m["status"]), "known field wins over stale extra")
	assert.JSONEq(t, `"kept"`, string(m["note"]))
}

func TestJob_Validate(t *testing.T) {
	now := time.Now().UTC()

	t.Run("success requires artifacts", func(t *testing.T) {
		j := New("h3", now)
		j.Status = constants.JobStatusSuccess
		require.Error(t, j.Validate())

		j.Artifacts = []Artifact{{Kind: constants.ArtifactKindThumbnail, URL: "http://blobs/t.png"}}
		require.NoError(t, j.Validate())
	})

	t.Run("error with no artifacts is fine", func(t *testing.T) {
		j := New("h4", now)
		j.Status = constants.JobStatusError
		j.Error = "boom"
		require.NoError(t, j.Validate())
	})

	t.Run("missing hash rejected", func(t *testing.T) {
		j := New("", now)
		require.Error(t, j.Validate())
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		j := New("h5", now)
		j.Status = constants.JobStatus("RUNNING")
		require.Error(t, j.Validate())
	})
}
