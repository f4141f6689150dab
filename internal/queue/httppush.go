package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/image-factory/internal/common"
	"github.com/joseph-ayodele/image-factory/internal/pubsub"
)

// HTTPPush is an embedded push broker for deployments without a managed
// queue. Each published message is delivered asynchronously to the derive
// endpoint as a push envelope; a delivery counts as acknowledged on any 2xx
// response. After MaxAttempts failed attempts the envelope is routed to the
// dead-letter endpoint instead.
type HTTPPush struct {
	Client             *http.Client
	Endpoint           string
	DeadLetterEndpoint string
	MaxAttempts        int
	Backoff            time.Duration
	PublishTimeout     time.Duration
	Logger             *slog.Logger

	wg sync.WaitGroup
}

// NewHTTPPush builds the transport from queue configuration.
func NewHTTPPush(cfg common.QueueConfig, logger *slog.Logger) *HTTPPush {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPPush{
		Client:             &http.Client{Timeout: cfg.PublishTimeout},
		Endpoint:           cfg.DeriveEndpoint,
		DeadLetterEndpoint: cfg.DeadLetterEndpoint,
		MaxAttempts:        cfg.MaxAttempts,
		Backoff:            cfg.RetryBackoff,
		PublishTimeout:     cfg.PublishTimeout,
		Logger:             logger,
	}
}

// Publish hands the message to the delivery loop and returns immediately.
// The delivery goroutine is detached from the caller's context: cancelling
// the originating request must not abort the delivery.
func (p *HTTPPush) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	id := uuid.NewString()
	env := pubsub.NewPush(data, attrs, id)
	body, err := json.Marshal(env)
	if err != nil {
		return "", common.NewAppError("QUEUE_ENCODE_FAILED", err.Error(), common.ErrQueueUnavailable)
	}
	p.wg.Add(1)
	go p.deliver(id, body)
	return id, nil
}

// Drain blocks until all in-flight deliveries have settled.
func (p *HTTPPush) Drain() { p.wg.Wait() }

func (p *HTTPPush) deliver(id string, body []byte) {
	defer p.wg.Done()
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		err := p.post(p.Endpoint, body)
		if err == nil {
			p.Logger.Info("queue.delivered", "message_id", id, "attempt", attempt)
			return
		}
		p.Logger.Warn("queue.delivery_failed", "message_id", id, "attempt", attempt, "error", err)
		if attempt < attempts && p.Backoff > 0 {
			time.Sleep(p.Backoff * time.Duration(attempt))
		}
	}
	if p.DeadLetterEndpoint == "" {
		p.Logger.Error("queue.dropped", "message_id", id)
		return
	}
	if err := p.post(p.DeadLetterEndpoint, body); err != nil {
		p.Logger.Error("queue.dead_letter_failed", "message_id", id, "error", err)
		return
	}
	p.Logger.Warn("queue.dead_lettered", "message_id", id)
}

func (p *HTTPPush) post(url string, body []byte) error {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	ctx := context.Background()
	if p.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.PublishTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return nil
}
