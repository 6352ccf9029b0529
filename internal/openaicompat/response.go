package openaicompat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidbz/howl/internal/domain"
)

const (
	finishStop   = "stop"
	finishLength = "length"
	finishError  = "error"
)

// finishReason maps an engine stop reason onto the external finish_reason.
// The table is total: a value outside the engine's vocabulary is a defect
// and is surfaced as an error rather than coerced. A nil result (with nil
// error) means finish_reason is null externally.
func finishReason(stop domain.StopReason) (*string, error) {
	var reason string
	switch stop {
	case domain.StopCompleted, domain.StopInterrupted:
		reason = finishStop
	case domain.StopMaxTurns:
		reason = finishLength
	case domain.StopError:
		reason = finishError
	case domain.StopNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unrecognized engine stop reason %q", stop)
	}
	return &reason, nil
}

func newCompletionID() string {
	return completionIDPrefix + uuid.NewString()
}

// TranslateResponse converts a completed engine result into the external
// completion payload. The reported model is the caller-supplied external id
// from the originating request, not a re-derivation.
func TranslateResponse(result *domain.QueryResult, externalModel string) (*ChatCompletionResponse, error) {
	if result == nil {
		return nil, domain.NewUpstreamFailure("engine returned no result")
	}

	reason, err := finishReason(result.StopReason)
	if err != nil {
		return nil, domain.NewUpstreamFailure(err.Error())
	}

	usage := ChatUsage{}
	if result.Usage != nil {
		usage.PromptTokens = result.Usage.InputTokens
		usage.CompletionTokens = result.Usage.OutputTokens
	}
	// Always computed, never trusted from elsewhere.
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens

	return &ChatCompletionResponse{
		ID:      newCompletionID(),
		Object:  objectChatCompletion,
		Created: time.Now().Unix(),
		Model:   externalModel,
		Choices: []ChatChoice{
			{
				Index: 0,
				Message: ChatMessage{
					Role:    roleAssistant,
					Content: joinTextBlocks(result.Content),
				},
				FinishReason: reason,
			},
		},
		Usage: usage,
	}, nil
}

// joinTextBlocks keeps text-kind blocks in order, joined with a single
// space. Blocks of any other kind (thinking, traces) are dropped.
func joinTextBlocks(blocks []domain.ContentBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if block.Kind == domain.BlockText {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, " ")
}
