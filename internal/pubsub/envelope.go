package pubsub

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/image-factory/internal/common"
)

// Attribute keys carried on every derivation message.
const (
	AttrContentHash = "contentHash"
	AttrSourceURL   = "sourceUrl"
)

// Message is the broker message inside a push envelope. Data is base64 and
// informational only; the attributes carry the request.
type Message struct {
	Data       string            `json:"data"`
	MessageID  string            `json:"messageId"`
	Attributes map[string]string `json:"attributes"`
}

// Decode returns the decoded message body.
func (m Message) Decode() (string, error) {
	raw, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return "", common.NewAppError("PUSH_DATA_INVALID", err.Error(), common.ErrValidation)
	}
	return string(raw), nil
}

// PushRequest is the HTTP body the push transport delivers.
type PushRequest struct {
	Message      Message `json:"message"`
	Subscription string  `json:"subscription,omitempty"`
}

// NewPush builds an envelope for publishing.
func NewPush(data []byte, attrs map[string]string, messageID string) PushRequest {
	return PushRequest{
		Message: Message{
			Data:       base64.StdEncoding.EncodeToString(data),
			MessageID:  messageID,
			Attributes: attrs,
		},
	}
}

var pushSchema = map[string]any{
	"type":     "object",
	"required": []any{"message"},
	"properties": map[string]any{
		"message": map[string]any{
			"type":     "object",
			"required": []any{"data", "attributes"},
			"properties": map[string]any{
				"data":      map[string]any{"type": "string"},
				"messageId": map[string]any{"type": "string"},
				"attributes": map[string]any{
					"type":     "object",
					"required": []any{AttrContentHash, AttrSourceURL},
					"properties": map[string]any{
						AttrContentHash: map[string]any{"type": "string", "minLength": 1},
						AttrSourceURL:   map[string]any{"type": "string", "minLength": 1},
					},
				},
			},
		},
		"subscription": map[string]any{"type": "string"},
	},
}

// ParsePush validates body against the push-envelope schema and decodes it.
func ParsePush(body []byte) (*PushRequest, error) {
	if err := validateAgainstSchema(pushSchema, body); err != nil {
		return nil, common.NewAppError("PUSH_ENVELOPE_INVALID", err.Error(), common.ErrValidation)
	}
	var req PushRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, common.NewAppError("PUSH_ENVELOPE_INVALID", err.Error(), common.ErrValidation)
	}
	return &req, nil
}

// validateAgainstSchema validates "data" against "schemaMap".
func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
