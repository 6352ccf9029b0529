package domain

import "context"

// Engine is the prompt-based agent execution backend the gateway wraps.
type Engine interface {
	// Query sends a single-prompt request and returns the full result.
	Query(ctx context.Context, req *QueryRequest) (*QueryResult, error)

	// QueryStream sends a single-prompt request and returns a finite,
	// non-restartable sequence of incremental events. The channel is
	// closed by the engine when the sequence is exhausted; cancelling
	// ctx stops event production promptly.
	QueryStream(ctx context.Context, req *QueryRequest) (<-chan StreamEvent, error)
}
