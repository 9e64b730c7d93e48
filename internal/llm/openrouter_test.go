package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereallemon/colonychat/internal/logging"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent", "json")
}

func testClient(t *testing.T, handler http.HandlerFunc) *OpenRouterClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c := NewOpenRouterClient(ts.URL, "test-key", silentLog())
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func okBody(content string) string {
	return `{"choices":[{"message":{"content":` + marshalString(content) + `}}]}`
}

func marshalString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func testRequest() CompletionRequest {
	return CompletionRequest{
		Model:       "anthropic/claude-3-haiku",
		System:      "You are a builder.",
		Messages:    []Message{{Role: RoleUser, Content: "hello"}},
		MaxTokens:   150,
		Temperature: 0.7,
	}
}

func TestComplete_Success(t *testing.T) {
	var gotAuth, gotReferer string
	var gotBody map[string]any

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(okBody("Good day to you!")))
	})

	resp, err := client.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Good day to you!", resp.Content)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.NotEmpty(t, gotReferer)
	assert.Equal(t, "anthropic/claude-3-haiku", gotBody["model"])
	assert.EqualValues(t, 150, gotBody["max_tokens"])

	// System prompt must be the first message, history follows in order.
	msgs := gotBody["messages"].([]any)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "You are a builder.", first["content"])
}

func TestComplete_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(okBody("finally")))
	})

	resp, err := client.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "finally", resp.Content)
	assert.EqualValues(t, 4, calls.Load())
}

func TestComplete_ExhaustsAfterFourAttempts(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Complete(context.Background(), testRequest())
	require.Error(t, err)
	assert.EqualValues(t, 4, calls.Load())

	var llmErr *Error
	require.True(t, errors.As(err, &llmErr))
	assert.True(t, llmErr.Exhausted)
	assert.Equal(t, 4, llmErr.Attempts)
	assert.ErrorContains(t, llmErr.Err, "502")
}

func TestComplete_EmptyReplyIsRetryable(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(okBody("   ")))
			return
		}
		w.Write([]byte(okBody("real answer")))
	})

	resp, err := client.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "real answer", resp.Content)
	assert.EqualValues(t, 2, calls.Load())
}

func TestComplete_APIErrorBodyIsRetryable(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	})

	_, err := client.Complete(context.Background(), testRequest())
	require.Error(t, err)
	assert.EqualValues(t, 4, calls.Load())

	var llmErr *Error
	require.True(t, errors.As(err, &llmErr))
	assert.ErrorContains(t, llmErr.Err, "model overloaded")
}

func TestComplete_ContextCancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Complete(ctx, testRequest())
	require.Error(t, err)

	var llmErr *Error
	require.True(t, errors.As(err, &llmErr))
	assert.False(t, llmErr.Exhausted)
	assert.EqualValues(t, 1, calls.Load())
}

func TestParseResponse_NoChoices(t *testing.T) {
	_, err := parseResponse([]byte(`{"choices":[]}`))
	assert.ErrorContains(t, err, "no choices")
}
