package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davidbz/howl/internal/domain"
	"github.com/davidbz/howl/internal/httpserver"
	"github.com/davidbz/howl/internal/models"
	"github.com/davidbz/howl/internal/observability"
	"github.com/davidbz/howl/internal/openaicompat"
)

// fakeEngine is a configurable domain.Engine for handler tests.
type fakeEngine struct {
	lastRequest *domain.QueryRequest
	result      *domain.QueryResult
	events      []domain.StreamEvent
	err         error
}

func (f *fakeEngine) Query(_ context.Context, req *domain.QueryRequest) (*domain.QueryResult, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeEngine) QueryStream(ctx context.Context, req *domain.QueryRequest) (<-chan domain.StreamEvent, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}

	events := make(chan domain.StreamEvent)
	go func() {
		defer close(events)
		for _, ev := range f.events {
			select {
			case <-ctx.Done():
				return
			case events <- ev:
			}
		}
	}()
	return events, nil
}

func newTestHandler(t *testing.T, engine domain.Engine) *httpserver.Handler {
	t.Helper()

	mapper, err := models.NewMapper([]models.Mapping{
		{External: "gpt-4", Internal: "claude-sonnet-4-20250514"},
	})
	require.NoError(t, err)

	return httpserver.NewHandler(
		domain.NewGatewayService(engine),
		mapper,
		observability.NewDiagnostics(zap.NewNop()),
		observability.NewMetrics(),
	)
}

func postCompletion(t *testing.T, handler *httpserver.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	handler.HandleChatCompletion(w, req)
	return w
}

func TestHandleChatCompletion(t *testing.T) {
	t.Run("should return a translated completion", func(t *testing.T) {
		engine := &fakeEngine{
			result: &domain.QueryResult{
				Content: []domain.ContentBlock{
					{Kind: domain.BlockText, Text: "Hello"},
					{Kind: domain.BlockThinking, Text: "..."},
					{Kind: domain.BlockText, Text: "World"},
				},
				Model:      "claude-sonnet-4-20250514",
				StopReason: domain.StopCompleted,
				Usage:      &domain.Usage{InputTokens: 3, OutputTokens: 2},
			},
		}
		handler := newTestHandler(t, engine)

		w := postCompletion(t, handler, `{
			"model": "gpt-4",
			"messages": [
				{"role": "system", "content": "You are helpful"},
				{"role": "user", "content": "Hello"}
			]
		}`)

		require.Equal(t, http.StatusOK, w.Code)

		var resp openaicompat.ChatCompletionResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Equal(t, "gpt-4", resp.Model)
		require.Equal(t, "chat.completion", resp.Object)
		require.Equal(t, "Hello World", resp.Choices[0].Message.Content)
		require.Equal(t, 5, resp.Usage.TotalTokens)

		// The engine saw the flattened prompt.
		require.Equal(t, "USER: Hello\n\n", engine.lastRequest.Prompt)
		require.Equal(t, "You are helpful", engine.lastRequest.SystemPrompt)
		require.Equal(t, "claude-sonnet-4-20250514", engine.lastRequest.Model)
	})

	t.Run("should reject malformed JSON", func(t *testing.T) {
		handler := newTestHandler(t, &fakeEngine{})

		w := postCompletion(t, handler, `{not json`)
		requireEnvelope(t, w, http.StatusBadRequest, "invalid_request_error")
	})

	t.Run("should reject empty messages before calling the engine", func(t *testing.T) {
		engine := &fakeEngine{}
		handler := newTestHandler(t, engine)

		w := postCompletion(t, handler, `{"model": "gpt-4", "messages": []}`)
		requireEnvelope(t, w, http.StatusBadRequest, "invalid_request_error")
		require.Nil(t, engine.lastRequest, "engine must not be called for an invalid request")
	})

	t.Run("should reject unknown model as invalid request", func(t *testing.T) {
		handler := newTestHandler(t, &fakeEngine{})

		w := postCompletion(t, handler, `{
			"model": "gpt-unknown",
			"messages": [{"role": "user", "content": "Hello"}]
		}`)
		requireEnvelope(t, w, http.StatusBadRequest, "invalid_request_error")
	})

	t.Run("should translate engine failures into the envelope", func(t *testing.T) {
		handler := newTestHandler(t, &fakeEngine{err: domain.NewUpstreamFailure("engine unavailable")})

		w := postCompletion(t, handler, `{
			"model": "gpt-4",
			"messages": [{"role": "user", "content": "Hello"}]
		}`)
		requireEnvelope(t, w, http.StatusInternalServerError, "api_error")
	})
}

func TestHandleChatCompletion_Streaming(t *testing.T) {
	t.Run("should stream chunks terminated by the sentinel", func(t *testing.T) {
		engine := &fakeEngine{
			events: []domain.StreamEvent{
				{Kind: domain.EventPartial, Text: "Hel"},
				{Kind: domain.EventPartial, Text: "lo"},
				{Kind: domain.EventResult, StopReason: domain.StopCompleted},
			},
		}
		handler := newTestHandler(t, engine)

		w := postCompletion(t, handler, `{
			"model": "gpt-4",
			"messages": [{"role": "user", "content": "Hello"}],
			"stream": true
		}`)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

		chunks := decodeSSE(t, w.Body.String())
		require.Len(t, chunks, 4)

		require.Equal(t, "assistant", chunks[0].Choices[0].Delta.Role)
		require.Equal(t, "Hel", *chunks[1].Choices[0].Delta.Content)
		require.Equal(t, "lo", *chunks[2].Choices[0].Delta.Content)
		require.Equal(t, "stop", *chunks[3].Choices[0].FinishReason)

		// One id across the whole stream.
		for _, chunk := range chunks {
			require.Equal(t, chunks[0].ID, chunk.ID)
			require.Equal(t, "gpt-4", chunk.Model)
		}

		require.True(t, strings.HasSuffix(strings.TrimSpace(w.Body.String()), "data: [DONE]"))
	})

	t.Run("should terminate with sentinel on mid-stream error", func(t *testing.T) {
		engine := &fakeEngine{
			events: []domain.StreamEvent{
				{Kind: domain.EventPartial, Text: "partial"},
				{Kind: domain.EventError, Message: "engine exploded"},
			},
		}
		handler := newTestHandler(t, engine)

		w := postCompletion(t, handler, `{
			"model": "gpt-4",
			"messages": [{"role": "user", "content": "Hello"}],
			"stream": true
		}`)

		chunks := decodeSSE(t, w.Body.String())
		last := chunks[len(chunks)-1]
		require.Equal(t, "error", *last.Choices[0].FinishReason)
		require.True(t, strings.HasSuffix(strings.TrimSpace(w.Body.String()), "data: [DONE]"))
	})

	t.Run("should return an error envelope when the stream cannot start", func(t *testing.T) {
		handler := newTestHandler(t, &fakeEngine{err: domain.NewRateLimited("slow down")})

		w := postCompletion(t, handler, `{
			"model": "gpt-4",
			"messages": [{"role": "user", "content": "Hello"}],
			"stream": true
		}`)
		requireEnvelope(t, w, http.StatusTooManyRequests, "rate_limit_exceeded")
	})
}

func TestHandleModels(t *testing.T) {
	handler := newTestHandler(t, &fakeEngine{})

	t.Run("should list configured models", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
		w := httptest.NewRecorder()
		handler.HandleListModels(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var list openaicompat.ModelList
		require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
		require.Equal(t, "list", list.Object)
		require.Len(t, list.Data, 1)
		require.Equal(t, "gpt-4", list.Data[0].ID)
	})

	t.Run("should return one model by id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/models/gpt-4", nil)
		req.SetPathValue("id", "gpt-4")
		w := httptest.NewRecorder()
		handler.HandleGetModel(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var info models.ModelInfo
		require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
		require.Equal(t, "gpt-4", info.ID)
		require.Equal(t, "model", info.Object)
	})

	t.Run("should return 404 envelope for unknown model", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/models/gpt-unknown", nil)
		req.SetPathValue("id", "gpt-unknown")
		w := httptest.NewRecorder()
		handler.HandleGetModel(w, req)

		require.Equal(t, http.StatusNotFound, w.Code)

		var envelope openaicompat.ErrorEnvelope
		require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
		require.Equal(t, "model_not_found", envelope.Error.Code)
	})
}

func requireEnvelope(t *testing.T, w *httptest.ResponseRecorder, status int, errType string) {
	t.Helper()
	require.Equal(t, status, w.Code)

	var envelope openaicompat.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.Equal(t, errType, envelope.Error.Type)
	require.NotEmpty(t, envelope.Error.Message)
}

// decodeSSE parses the data payloads of an SSE body, excluding the sentinel.
func decodeSSE(t *testing.T, body string) []openaicompat.ChatCompletionChunk {
	t.Helper()

	var chunks []openaicompat.ChatCompletionChunk
	sawSentinel := false
	for line := range strings.Lines(body) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		require.False(t, sawSentinel, "no data may follow the sentinel")
		if payload == "[DONE]" {
			sawSentinel = true
			continue
		}

		var chunk openaicompat.ChatCompletionChunk
		require.NoError(t, json.Unmarshal([]byte(payload), &chunk))
		chunks = append(chunks, chunk)
	}
	require.True(t, sawSentinel, "stream must end with the sentinel")
	return chunks
}
