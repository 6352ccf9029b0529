package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/davidbz/howl/internal/domain"
	"github.com/davidbz/howl/internal/models"
	"github.com/davidbz/howl/internal/observability"
	"github.com/davidbz/howl/internal/openaicompat"
)

// Handler handles HTTP requests on the translated surface.
type Handler struct {
	gateway *domain.GatewayService
	mapper  *models.Mapper
	diag    *observability.Diagnostics
	metrics *observability.Metrics
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(
	gateway *domain.GatewayService,
	mapper *models.Mapper,
	diag *observability.Diagnostics,
	metrics *observability.Metrics,
) *Handler {
	return &Handler{
		gateway: gateway,
		mapper:  mapper,
		diag:    diag,
		metrics: metrics,
	}
}

// HandleChatCompletion processes POST /v1/chat/completions.
func (h *Handler) HandleChatCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req openaicompat.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		openaicompat.WriteError(w, r, domain.NewInvalidRequest(fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	// Validation happens before any engine work is attempted.
	if err := openaicompat.ValidateRequest(&req); err != nil {
		openaicompat.WriteError(w, r, err)
		return
	}

	ctx = observability.WithModel(ctx, req.Model)
	r = r.WithContext(ctx)

	logger := observability.FromContext(ctx)
	logger.Info("chat completion request received",
		observability.Int("messages", len(req.Messages)),
		observability.Bool("stream", req.Stream),
	)

	internalReq, err := openaicompat.TranslateRequest(ctx, &req, h.mapper, h.diag)
	if err != nil {
		logger.Warn("request translation failed", observability.Error(err))
		openaicompat.WriteError(w, r, err)
		return
	}

	if req.Stream {
		h.handleStream(w, r, &req, internalReq)
		return
	}

	result, err := h.gateway.Query(ctx, internalReq)
	if err != nil {
		logger.Error("completion failed", observability.Error(err))
		h.countEngineCall("error")
		openaicompat.WriteError(w, r, err)
		return
	}
	h.countEngineCall("ok")

	response, err := openaicompat.TranslateResponse(result, req.Model)
	if err != nil {
		logger.Error("response translation failed", observability.Error(err))
		openaicompat.WriteError(w, r, err)
		return
	}

	logger.Info("completion succeeded",
		observability.Int("total_tokens", response.Usage.TotalTokens),
	)

	w.Header().Set("Content-Type", "application/json")
	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		logger.Error("failed to encode response", observability.Error(encodeErr))
	}
}

func (h *Handler) handleStream(
	w http.ResponseWriter,
	r *http.Request,
	req *openaicompat.ChatCompletionRequest,
	internalReq *domain.QueryRequest,
) {
	ctx := r.Context()

	adapter := openaicompat.NewStreamAdapter(req.Model, h.diag)
	ctx = observability.WithStreamID(ctx, adapter.ID())
	logger := observability.FromContext(ctx)

	events, err := h.gateway.QueryStream(ctx, internalReq)
	if err != nil {
		logger.Error("stream failed to start", observability.Error(err))
		h.countEngineCall("error")
		openaicompat.WriteError(w, r, err)
		return
	}
	h.countEngineCall("ok")

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("streaming not supported by response writer")
		openaicompat.WriteError(w, r, domain.NewUpstreamFailure("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for item := range adapter.Run(ctx, events) {
		if item.Done {
			fmt.Fprintf(w, "data: %s\n\n", openaicompat.StreamSentinel)
			flusher.Flush()
			logger.Info("stream completed")
			return
		}

		data, marshalErr := json.Marshal(item.Chunk)
		if marshalErr != nil {
			logger.Error("failed to marshal chunk", observability.Error(marshalErr))
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()

		if h.metrics != nil {
			h.metrics.StreamChunks.Inc()
			choice := item.Chunk.Choices[0]
			if choice.FinishReason != nil && *choice.FinishReason == "error" {
				h.metrics.StreamErrors.Inc()
			}
		}
	}

	// Adapter ended without a sentinel: the client went away.
	logger.Info("stream cancelled", observability.Error(ctx.Err()))
}

// HandleListModels processes GET /v1/models.
func (h *Handler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, openaicompat.ModelList{
		Object: "list",
		Data:   h.mapper.List(),
	})
}

// HandleGetModel processes GET /v1/models/{id}.
func (h *Handler) HandleGetModel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	info, err := h.mapper.Lookup(id)
	if err != nil {
		openaicompat.WriteError(w, r, domain.NewNotFound("model_not_found", fmt.Sprintf("model %q does not exist", id)))
		return
	}

	writeJSON(w, r, info)
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "healthy"})
}

func (h *Handler) countEngineCall(outcome string) {
	if h.metrics != nil {
		h.metrics.EngineCallsTotal.WithLabelValues(outcome).Inc()
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.FromContext(r.Context()).Error("failed to encode response",
			observability.Error(err),
		)
	}
}
