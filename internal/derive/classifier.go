package derive

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/image-factory/constants"
	"github.com/joseph-ayodele/image-factory/internal/common"
)

// Classifier labels the source image through an HTTP inference endpoint.
// The endpoint accepts {"image": <base64>, "top_n": N} and answers
// {"labels": [{"index": i, "label": s, "confidence": f}, ...]}.
type Classifier struct {
	Client *http.Client
	URL    string
	APIKey string
	TopN   int
	Logger *slog.Logger
}

type classifyRequest struct {
	Image string `json:"image"`
	TopN  int    `json:"top_n"`
}

type classifyResponse struct {
	Labels []struct {
		Index      int     `json:"index"`
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"labels"`
}

const classifyResponseSchema = `{
  "type": "object",
  "required": ["labels"],
  "properties": {
    "labels": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["label", "confidence"],
        "properties": {
          "index": {"type": "integer"},
          "label": {"type": "string", "minLength": 1},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    }
  }
}`

var classifySchema = jsonschema.MustCompileString("classify.json", classifyResponseSchema)

func (c Classifier) Derive(ctx context.Context, src []byte, contentType string) ([]Artifact, error) {
	topN := c.TopN
	if topN <= 0 {
		topN = 5
	}
	raw, err := c.send(ctx, classifyRequest{
		Image: base64.StdEncoding.EncodeToString(src),
		TopN:  topN,
	})
	if err != nil {
		return nil, common.NewAppError("INFERENCE_REQUEST_FAILED", err.Error(), common.ErrDerivation)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, common.NewAppError("INFERENCE_RESPONSE_INVALID", err.Error(), common.ErrDerivation)
	}
	if err := classifySchema.Validate(v); err != nil {
		return nil, common.NewAppError("INFERENCE_RESPONSE_INVALID", err.Error(), common.ErrDerivation)
	}
	var resp classifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, common.NewAppError("INFERENCE_RESPONSE_INVALID", err.Error(), common.ErrDerivation)
	}

	out := make([]Artifact, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		if len(out) == topN {
			break
		}
		out = append(out, Artifact{
			Kind:       constants.ArtifactKindLabel,
			Label:      l.Label,
			Confidence: l.Confidence,
		})
	}
	return out, nil
}

func (c Classifier) send(ctx context.Context, body any) ([]byte, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}

	reqID := uuid.New().String()
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("classifier.http.send_error", "req_id", reqID, "error", err)
		return nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	logger.Info("classifier.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		return raw, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, nil
}
