// Package openaicompat implements the OpenAI Chat Completions surface of the
// gateway: the wire types, the request/response translation to and from the
// engine's single-prompt protocol, the streaming adapter, and the error
// envelope translation.
package openaicompat

import (
	"encoding/json"
	"fmt"

	"github.com/davidbz/howl/internal/models"
)

// ChatMessage is one message of the external conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StopList accepts the OpenAI "stop" field, which is either a single string
// or an array of strings on the wire.
type StopList []string

// UnmarshalJSON implements the string-or-array decoding for StopList.
func (s *StopList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StopList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("stop must be a string or an array of strings: %w", err)
	}
	*s = StopList(many)
	return nil
}

// ChatCompletionRequest is the request body for POST /v1/chat/completions.
// Recognized-but-unsupported parameters (temperature, top_p, stop,
// max_tokens) are kept as explicit fields so they are handled through
// explicit code paths rather than silently dropped by decoding.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stop        StopList      `json:"stop,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
	User        string        `json:"user,omitempty"`
}

// ChatUsage holds token usage in the external format.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatChoice is one completion choice. The gateway never produces more
// than one (n>1 is not supported).
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason *string     `json:"finish_reason"`
}

// ChatCompletionResponse is the non-streaming response body.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}

// ChunkDelta holds the incremental payload of one streaming chunk. Role is
// set only on the leading chunk; Content only on content chunks.
type ChunkDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// ChunkChoice is the single choice of a streaming chunk.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChatCompletionChunk is one SSE data payload of a streaming response.
// Every chunk of one stream shares the same ID.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ErrorBody is the inner error object of the external error envelope.
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope is the external error format.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ModelList is the response body for GET /v1/models.
type ModelList struct {
	Object string             `json:"object"`
	Data   []models.ModelInfo `json:"data"`
}

const (
	objectChatCompletion      = "chat.completion"
	objectChatCompletionChunk = "chat.completion.chunk"
	objectList                = "list"

	completionIDPrefix = "chatcmpl-"

	// StreamSentinel is the literal data payload of the final SSE event.
	StreamSentinel = "[DONE]"
)
