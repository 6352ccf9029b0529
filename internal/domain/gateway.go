package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/davidbz/howl/internal/observability"
)

// GatewayService orchestrates engine queries on behalf of the translated
// surface. It holds no mutable state; every call is request-scoped.
type GatewayService struct {
	engine Engine
}

// NewGatewayService creates a new gateway service (DI constructor).
func NewGatewayService(engine Engine) *GatewayService {
	return &GatewayService{
		engine: engine,
	}
}

// Query executes a non-streaming engine query.
func (g *GatewayService) Query(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}

	result, err := g.engine.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("engine query failed: %w", err)
	}

	logger := observability.FromContext(ctx)
	if result.Usage != nil {
		logger.Info("engine query completed",
			observability.String("stop_reason", string(result.StopReason)),
			observability.Int("input_tokens", result.Usage.InputTokens),
			observability.Int("output_tokens", result.Usage.OutputTokens),
		)
	} else {
		logger.Info("engine query completed",
			observability.String("stop_reason", string(result.StopReason)),
		)
	}

	return result, nil
}

// QueryStream executes a streaming engine query.
func (g *GatewayService) QueryStream(ctx context.Context, req *QueryRequest) (<-chan StreamEvent, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}

	events, err := g.engine.QueryStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("engine stream failed: %w", err)
	}
	return events, nil
}
