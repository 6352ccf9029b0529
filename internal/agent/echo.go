package agent

import (
	"context"
	"strings"
	"time"

	"github.com/davidbz/howl/internal/domain"
)

const echoChunkDelay = 10 * time.Millisecond

// EchoEngine is an in-process engine that echoes the prompt back. It makes
// the gateway runnable without a real agent runtime, for development and
// end-to-end tests.
type EchoEngine struct{}

// NewEchoEngine creates a new echo engine.
func NewEchoEngine() *EchoEngine {
	return &EchoEngine{}
}

// Query returns the prompt as a single text block.
func (e *EchoEngine) Query(_ context.Context, req *domain.QueryRequest) (*domain.QueryResult, error) {
	text := echoText(req)
	tokens := countTokens(text)

	return &domain.QueryResult{
		Content: []domain.ContentBlock{
			{Kind: domain.BlockText, Text: text},
		},
		Model:      req.Model,
		StopReason: domain.StopCompleted,
		Usage: &domain.Usage{
			InputTokens:  tokens,
			OutputTokens: tokens,
		},
	}, nil
}

// QueryStream streams the prompt back word by word, then a result event.
func (e *EchoEngine) QueryStream(ctx context.Context, req *domain.QueryRequest) (<-chan domain.StreamEvent, error) {
	words := strings.Fields(echoText(req))

	events := make(chan domain.StreamEvent)
	go func() {
		defer close(events)

		for i, word := range words {
			if i > 0 {
				word = " " + word
			}
			select {
			case <-ctx.Done():
				return
			case events <- domain.StreamEvent{Kind: domain.EventPartial, Text: word}:
			}
			time.Sleep(echoChunkDelay)
		}

		select {
		case <-ctx.Done():
		case events <- domain.StreamEvent{Kind: domain.EventResult, StopReason: domain.StopCompleted}:
		}
	}()

	return events, nil
}

func echoText(req *domain.QueryRequest) string {
	if req.Prompt == "" {
		return "(empty prompt)"
	}
	return strings.TrimSpace(req.Prompt)
}

// countTokens approximates token usage by word count.
func countTokens(text string) int {
	return len(strings.Fields(text))
}
