package pubsub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/image-factory/internal/common"
)

func TestParsePush_RoundTrip(t *testing.T) {
	env := NewPush([]byte("h1"), map[string]string{
		AttrContentHash: "h1",
		AttrSourceURL:   "http://blobs/source/h1.png",
	}, "m-1")

	body, err := json.Marshal(env)
	require.NoError(t, err)

	req, err := ParsePush(body)
	require.NoError(t, err)
	assert.Equal(t, "m-1", req.Message.MessageID)
	assert.Equal(t, "h1", req.Message.Attributes[AttrContentHash])
	assert.Equal(t, "http://blobs/source/h1.png", req.Message.Attributes[AttrSourceURL])

	data, err := req.Message.Decode()
	require.NoError(t, err)
	assert.Equal(t, "h1", data)
}

func TestParsePush_MissingAttributes(t *testing.T) {
	cases := map[string]string{
		"no message":       `{}`,
		"no attributes":    `{"message": {"data": "aGk="}}`,
		"no content hash":  `{"message": {"data": "aGk=", "attributes": {"sourceUrl": "http://x"}}}`,
		"no source url":    `{"message": {"data": "aGk=", "attributes": {"contentHash": "h1"}}}`,
		"empty hash":       `{"message": {"data": "aGk=", "attributes": {"contentHash": "", "sourceUrl": "http://x"}}}`,
		"not even json":    `push!`,
		"wrong data type":  `{"message": {"data": 7, "attributes": {"contentHash": "h1", "sourceUrl": "http://x"}}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePush([]byte(body))
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestMessage_DecodeRejectsBadBase64(t *testing.T) {
	m := Message{Data: "not-base64!!!"}
	_, err := m.Decode()
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
}
