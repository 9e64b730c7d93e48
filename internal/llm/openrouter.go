package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/thereallemon/colonychat/internal/logging"
)

// DefaultEndpoint is the OpenRouter chat-completions URL.
const DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"

const (
	// maxAttempts is the total request budget: one initial attempt plus
	// three retries.
	maxAttempts = 4
	// backoffUnit scales the linear backoff: retry n sleeps n * backoffUnit.
	backoffUnit = time.Second
)

// OpenRouterClient talks to an OpenAI-compatible chat-completions endpoint
// with bounded linear-backoff retry. It holds no conversation state.
type OpenRouterClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      *logging.Logger

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(context.Context, time.Duration) error
}

// NewOpenRouterClient creates a client for the given endpoint. An empty
// endpoint selects the OpenRouter default.
func NewOpenRouterClient(endpoint, apiKey string, log *logging.Logger) *OpenRouterClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &OpenRouterClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 60 * time.Second},
		log:      log.Sub("llm"),
		sleep:    sleepCtx,
	}
}

// Complete sends the request, retrying transport failures, non-2xx statuses,
// API error bodies, and blank replies. After the attempt budget is spent it
// returns a single *Error carrying the last cause.
func (c *OpenRouterClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	payload, err := json.Marshal(c.buildRequestBody(req))
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("marshaling request: %w", err)}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			c.log.Debug().Int("attempt", attempt).Err(lastErr).Msg("retrying request")
			if err := c.sleep(ctx, time.Duration(attempt-1)*backoffUnit); err != nil {
				return nil, &Error{Attempts: attempt - 1, Err: err}
			}
		}

		content, err := c.attempt(ctx, payload)
		if err == nil {
			return &CompletionResponse{Content: content, Model: req.Model}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, &Error{Attempts: attempt, Err: ctx.Err()}
		}
	}

	c.log.Error().Int("attempts", maxAttempts).Err(lastErr).Msg("request exhausted retries")
	return nil, &Error{Exhausted: true, Attempts: maxAttempts, Err: lastErr}
}

// attempt performs a single HTTP round trip and extracts the reply text.
func (c *OpenRouterClient) attempt(ctx context.Context, payload []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/thereallemon/colonychat")
	httpReq.Header.Set("X-Title", "Colonychat NPC Conversations")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return parseResponse(body)
}

func (c *OpenRouterClient) buildRequestBody(req CompletionRequest) map[string]any {
	messages := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: req.System})
	}
	messages = append(messages, req.Messages...)

	return map[string]any{
		"model":       req.Model,
		"messages":    messages,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}
}

// parseResponse extracts choices[0].message.content, treating an error
// object or a blank reply as a failure so the caller retries.
func parseResponse(body []byte) (string, error) {
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("API returned error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("response has no choices")
	}
	content := result.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty reply")
	}
	return content, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
