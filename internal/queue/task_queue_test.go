package queue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQStashQueue_Publish(t *testing.T) {
	var (
		gotPath    string
		gotAuth    string
		gotRetries string
		gotPayload TaskPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRetries = r.Header.Get("Upstash-Retries")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messageId": "msg-123"}`))
	}))
	defer srv.Close()

	q := NewQStashQueue(srv.URL, "test-token")
	msgID, err := q.Publish(context.Background(), "https://worker.example.com/worker", TaskPayload{
		JobID:  "job-1",
		Action: ActionIngest,
	})
	require.NoError(t, err)

	assert.Equal(t, "msg-123", msgID)
	assert.Equal(t, "/v2/publish/https://worker.example.com/worker", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "3", gotRetries)
	assert.Equal(t, "job-1", gotPayload.JobID)
	assert.Equal(t, ActionIngest, gotPayload.Action)
}

func TestQStashQueue_PublishFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	q := NewQStashQueue(srv.URL, "bad-token")
	_, err := q.Publish(context.Background(), "https://worker.example.com/worker", TaskPayload{Action: ActionIngest})
	require.Error(t, err)

	var qerr *QueueError
	require.ErrorAs(t, err, &qerr)
	assert.Contains(t, qerr.Error(), "status 401")
}

func TestInlineQueue_RunsHandlerInBackground(t *testing.T) {
	var (
		mu   sync.Mutex
		got  TaskPayload
		done = make(chan struct{})
	)
	q := NewInlineQueue(func(ctx context.Context, p TaskPayload) error {
		mu.Lock()
		got = p
		mu.Unlock()
		close(done)
		return nil
	})

	msgID, err := q.Publish(context.Background(), "ignored", TaskPayload{
		Action:    ActionPrepareExport,
		ProjectID: "p1",
	})
	require.NoError(t, err)
	assert.Equal(t, "local_only", msgID)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("inline handler never ran")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "p1", got.ProjectID)
}
