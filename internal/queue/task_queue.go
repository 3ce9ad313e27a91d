package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TaskPayload is the JSON body delivered to the worker ingress.
type TaskPayload struct {
	JobID     string `json:"job_id,omitempty"`
	FileKey   string `json:"file_key,omitempty"`
	Action    string `json:"action"`
	ProjectID string `json:"project_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	GeminiKey string `json:"gemini_key,omitempty"`
	OpenAIKey string `json:"openai_key,omitempty"`
}

// Task actions understood by the worker ingress.
const (
	ActionIngest        = "ingest"
	ActionPrepareExport = "prepare_export"
)

// TaskQueue publishes fire-and-forget task payloads to a worker URL.
// The provider retries delivery on non-2xx responses.
type TaskQueue interface {
	Publish(ctx context.Context, destURL string, payload TaskPayload) (string, error)
}

// QueueError represents a publish failure
type QueueError struct {
	Operation string
	Err       error
	Message   string
}

func (e *QueueError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Operation + ": " + e.Err.Error()
	}
	return e.Operation + ": unknown error"
}

func (e *QueueError) Unwrap() error {
	return e.Err
}

// QStashQueue publishes tasks through the QStash REST API.
type QStashQueue struct {
	baseURL string
	token   string
	client  *http.Client
	retries int
}

// NewQStashQueue creates a QStash-backed task queue
func NewQStashQueue(baseURL, token string) *QStashQueue {
	return &QStashQueue{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		retries: 3,
	}
}

// Publish posts the payload to {base}/v2/publish/{destURL} and returns the
// provider message id.
func (q *QStashQueue) Publish(ctx context.Context, destURL string, payload TaskPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &QueueError{Operation: "publish", Err: err, Message: "failed to marshal payload"}
	}

	url := fmt.Sprintf("%s/v2/publish/%s", q.baseURL, destURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &QueueError{Operation: "publish", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+q.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Retries", fmt.Sprintf("%d", q.retries))

	resp, err := q.client.Do(req)
	if err != nil {
		return "", &QueueError{Operation: "publish", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &QueueError{Operation: "publish", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &QueueError{
			Operation: "publish",
			Message:   fmt.Sprintf("qstash publish failed: status %d: %s", resp.StatusCode, respBody),
		}
	}

	var result struct {
		MessageID string `json:"messageId"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &QueueError{Operation: "publish", Err: err, Message: "failed to decode publish response"}
	}
	return result.MessageID, nil
}

// TaskHandler runs one worker dispatch for a payload. The inline queue and
// the HTTP worker ingress share the same handler so the code path is
// identical with or without a real queue provider.
type TaskHandler func(ctx context.Context, payload TaskPayload) error

// InlineQueue runs the handler on a background goroutine in the current
// process. Used when no queue provider is configured.
type InlineQueue struct {
	handler TaskHandler
}

// NewInlineQueue creates an in-process task queue
func NewInlineQueue(handler TaskHandler) *InlineQueue {
	return &InlineQueue{handler: handler}
}

// Publish schedules the handler in the background and returns "local_only".
func (q *InlineQueue) Publish(ctx context.Context, destURL string, payload TaskPayload) (string, error) {
	go func() {
		// detached from the request context; the task outlives the request
		_ = q.handler(context.Background(), payload)
	}()
	return "local_only", nil
}
