// Package agent implements the engine boundary: the HTTP client for a
// remote agent runtime speaking the single-prompt query protocol, and an
// in-process echo engine for development.
package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/davidbz/howl/internal/domain"
	"github.com/davidbz/howl/internal/observability"
)

const (
	queryPath        = "/v1/query"
	credentialHeader = "X-Api-Key"

	// Cap on how much of an error body is read for a message.
	maxErrorBodyBytes = 4096
)

// Client talks to the agent runtime over HTTP and implements domain.Engine.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	// streamClient has no client-side timeout; streams are bounded by the
	// request context instead.
	streamClient *http.Client
}

// NewClient creates a new engine client.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		streamClient: &http.Client{},
	}
}

// Engine wire payloads.
type queryPayload struct {
	Prompt       string `json:"prompt"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Model        string `json:"model"`
	User         string `json:"user,omitempty"`
	Stream       bool   `json:"stream,omitempty"`
}

type queryResponse struct {
	Content    []contentPayload `json:"content"`
	Model      string           `json:"model"`
	StopReason string           `json:"stop_reason"`
	Usage      *usagePayload    `json:"usage,omitempty"`
}

type contentPayload struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type usagePayload struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type streamPayload struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

// Query sends a non-streaming engine query.
func (c *Client) Query(ctx context.Context, req *domain.QueryRequest) (*domain.QueryResult, error) {
	resp, err := c.execute(ctx, c.httpClient, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result queryResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr != nil {
		return nil, domain.NewUpstreamFailure(fmt.Sprintf("failed to decode engine response: %v", decodeErr))
	}

	blocks := make([]domain.ContentBlock, 0, len(result.Content))
	for _, block := range result.Content {
		blocks = append(blocks, domain.ContentBlock{
			Kind: domain.BlockKind(block.Type),
			Text: block.Text,
		})
	}

	out := &domain.QueryResult{
		Content:    blocks,
		Model:      result.Model,
		StopReason: domain.StopReason(result.StopReason),
	}
	if result.Usage != nil {
		out.Usage = &domain.Usage{
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
		}
	}
	return out, nil
}

// QueryStream sends a streaming engine query. Events are delivered on the
// returned channel, which is closed when the engine stream ends.
func (c *Client) QueryStream(ctx context.Context, req *domain.QueryRequest) (<-chan domain.StreamEvent, error) {
	//nolint:bodyclose // Response body is closed in the reader goroutine
	resp, err := c.execute(ctx, c.streamClient, req, true)
	if err != nil {
		return nil, err
	}

	events := make(chan domain.StreamEvent)
	go c.readStream(ctx, resp, events)

	return events, nil
}

func (c *Client) execute(ctx context.Context, client *http.Client, req *domain.QueryRequest, stream bool) (*http.Response, error) {
	payload := queryPayload{
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		Model:        req.Model,
		User:         req.User,
		Stream:       stream,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal engine request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+queryPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set(credentialHeader, c.apiKey)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, domain.NewUpstreamFailure(fmt.Sprintf("engine request failed: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, mapStatusError(resp)
	}

	return resp, nil
}

// mapStatusError translates a non-2xx engine response into the taxonomy.
// The engine's message is preserved verbatim when present.
func mapStatusError(resp *http.Response) error {
	message, code := extractErrorMessage(resp.Body)
	if message == "" {
		message = fmt.Sprintf("engine returned status %d", resp.StatusCode)
	}

	var apiErr *domain.APIError
	switch resp.StatusCode {
	case http.StatusBadRequest:
		apiErr = domain.NewInvalidRequest(message)
	case http.StatusUnauthorized, http.StatusForbidden:
		apiErr = domain.NewAuthenticationFailure(message)
	case http.StatusTooManyRequests:
		apiErr = domain.NewRateLimited(message)
	default:
		apiErr = domain.NewUpstreamFailure(message)
	}
	apiErr.Code = code
	return apiErr
}

func extractErrorMessage(body io.Reader) (string, string) {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil || len(data) == 0 {
		return "", ""
	}

	var errResp errorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message, errResp.Error.Code
	}
	return "", ""
}

// readStream parses the engine's SSE body into stream events.
//
// Expected format, one JSON payload per data line:
//
//	data: {"type":"partial","text":"..."}
//	data: {"type":"result","stop_reason":"completed"}
//	data: {"type":"error","error":"..."}
func (c *Client) readStream(ctx context.Context, resp *http.Response, events chan<- domain.StreamEvent) {
	defer close(events)
	defer resp.Body.Close()

	logger := observability.FromContext(ctx)
	scanner := bufio.NewScanner(resp.Body)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var ev streamPayload
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			logger.Warn("skipping malformed engine stream event", observability.Error(err))
			continue
		}

		event, ok := translateStreamPayload(ev)
		if !ok {
			logger.Warn("skipping engine stream event of unknown type",
				observability.String("event_type", ev.Type),
			)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case events <- event:
		}

		// The sequence is finite: nothing follows a result or error.
		if event.Kind != domain.EventPartial {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		select {
		case events <- domain.StreamEvent{Kind: domain.EventError, Message: "engine stream read error: " + err.Error()}:
		case <-ctx.Done():
		}
	}
}

func translateStreamPayload(ev streamPayload) (domain.StreamEvent, bool) {
	switch ev.Type {
	case "partial":
		return domain.StreamEvent{Kind: domain.EventPartial, Text: ev.Text}, true
	case "result":
		return domain.StreamEvent{Kind: domain.EventResult, StopReason: domain.StopReason(ev.StopReason)}, true
	case "error":
		return domain.StreamEvent{Kind: domain.EventError, Message: ev.Error}, true
	default:
		return domain.StreamEvent{}, false
	}
}
