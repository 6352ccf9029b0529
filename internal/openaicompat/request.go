package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/davidbz/howl/internal/domain"
	"github.com/davidbz/howl/internal/models"
	"github.com/davidbz/howl/internal/observability"
)

const (
	roleSystem    = "system"
	roleUser      = "user"
	roleAssistant = "assistant"
)

var allowedRoles = map[string]struct{}{
	roleSystem:    {},
	roleUser:      {},
	roleAssistant: {},
}

// ValidateRequest checks the external request before any engine work is
// attempted. It returns an invalid-request taxonomy error on failure.
func ValidateRequest(req *ChatCompletionRequest) error {
	if req == nil {
		return domain.NewInvalidRequest("request body is required")
	}

	if req.Model == "" {
		return domain.NewInvalidRequest("model is required")
	}

	if len(req.Messages) == 0 {
		return domain.NewInvalidRequest("messages must not be empty")
	}

	for i, msg := range req.Messages {
		if _, ok := allowedRoles[msg.Role]; !ok {
			return domain.NewInvalidRequest(fmt.Sprintf("messages[%d] has invalid role %q", i, msg.Role))
		}
	}

	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return domain.NewInvalidRequest("temperature must be between 0 and 2")
	}

	return nil
}

// TranslateRequest converts a validated external request into the engine's
// single-prompt form.
//
// System messages are joined with a blank line into the system prompt; the
// remaining messages are rendered in order as "<ROLE>: <content>\n\n".
// Parameters the engine has no equivalent for (temperature, top_p, stop,
// max_tokens) are accepted, reported as diagnostics, and never forwarded.
// In particular max_tokens is never mapped to the engine's turn limit: the
// two bound different axes (output length vs. conversation turns).
func TranslateRequest(
	ctx context.Context,
	req *ChatCompletionRequest,
	mapper *models.Mapper,
	diag *observability.Diagnostics,
) (*domain.QueryRequest, error) {
	if req == nil {
		return nil, domain.NewInvalidRequest("request body is required")
	}

	internalModel, err := mapper.ToInternal(req.Model)
	if err != nil {
		if errors.Is(err, models.ErrUnknownModel) {
			return nil, domain.NewInvalidRequest(fmt.Sprintf("model %q is not available", req.Model))
		}
		return nil, err
	}

	reportUnsupported(ctx, req, diag)

	var systemParts []string
	var prompt strings.Builder

	for _, msg := range req.Messages {
		if msg.Role == roleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		prompt.WriteString(strings.ToUpper(msg.Role))
		prompt.WriteString(": ")
		prompt.WriteString(msg.Content)
		prompt.WriteString("\n\n")
	}

	return &domain.QueryRequest{
		Prompt:       prompt.String(),
		SystemPrompt: strings.Join(systemParts, "\n\n"),
		Model:        internalModel,
		User:         req.User,
	}, nil
}

func reportUnsupported(ctx context.Context, req *ChatCompletionRequest, diag *observability.Diagnostics) {
	if diag == nil {
		return
	}
	if req.Temperature != nil {
		diag.UnsupportedParameter(ctx, "temperature")
	}
	if req.TopP != nil {
		diag.UnsupportedParameter(ctx, "top_p")
	}
	if len(req.Stop) > 0 {
		diag.UnsupportedParameter(ctx, "stop")
	}
	if req.MaxTokens != nil {
		diag.UnsupportedParameter(ctx, "max_tokens")
	}
}
