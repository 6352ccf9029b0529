package openaicompat

import (
	"context"
	"time"

	"github.com/davidbz/howl/internal/domain"
	"github.com/davidbz/howl/internal/observability"
)

type streamState int

const (
	stateNotStarted streamState = iota
	stateStreaming
	stateFinished
)

// StreamItem is one unit produced by the adapter: either a chunk to write
// as an SSE data payload, or the terminal sentinel (Done=true, Chunk=nil).
type StreamItem struct {
	Chunk *ChatCompletionChunk
	Done  bool
}

// StreamAdapter converts the engine's incremental event sequence into the
// external chunked sequence. It is single-use: Run consumes one event
// channel and the produced sequence is finite and not restartable.
//
// Invariants: the first chunk of every stream carries delta.role and
// nothing else; every chunk shares the adapter's completion id; a chunk
// never carries both content and a finish_reason; the sentinel is emitted
// exactly once, last, on every path including errors.
type StreamAdapter struct {
	id      string
	model   string
	created int64
	state   streamState
	diag    *observability.Diagnostics
}

// NewStreamAdapter creates an adapter for one stream. The completion id is
// generated here and reused for every chunk.
func NewStreamAdapter(externalModel string, diag *observability.Diagnostics) *StreamAdapter {
	return &StreamAdapter{
		id:      newCompletionID(),
		model:   externalModel,
		created: time.Now().Unix(),
		state:   stateNotStarted,
		diag:    diag,
	}
}

// ID returns the stream-scoped completion id.
func (a *StreamAdapter) ID() string {
	return a.id
}

// Run consumes engine events and returns the chunk sequence. The returned
// channel is unbuffered, so at most one chunk is in flight ahead of the
// consumer, and it is closed after the sentinel. Cancelling ctx stops the
// adapter; the engine observes the same cancellation and stops producing.
func (a *StreamAdapter) Run(ctx context.Context, events <-chan domain.StreamEvent) <-chan StreamItem {
	out := make(chan StreamItem)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-events:
				if !ok {
					// Engine closed the sequence without a result event.
					// Terminate the client stream cleanly anyway.
					observability.FromContext(ctx).Warn("engine stream ended without result event")
					if a.state == stateNotStarted {
						if !a.send(ctx, out, a.roleChunk()) {
							return
						}
					}
					if !a.finishWith(ctx, out, finishStop) {
						return
					}
					a.state = stateFinished
					a.send(ctx, out, StreamItem{Done: true})
					return
				}

				if a.state == stateNotStarted {
					// Exactly one leading role chunk, before any content,
					// regardless of what kind of event arrived first.
					if !a.send(ctx, out, a.roleChunk()) {
						return
					}
					a.state = stateStreaming
				}

				switch ev.Kind {
				case domain.EventPartial:
					// Zero-length partials are forwarded as-is.
					if !a.send(ctx, out, a.contentChunk(ev.Text)) {
						return
					}

				case domain.EventResult:
					// A "none" stop reason passes through as a null
					// finish_reason, matching the non-streaming translation.
					reason, err := finishReason(ev.StopReason)
					if err != nil {
						observability.FromContext(ctx).Error("stream result carried unrecognized stop reason",
							observability.String("stop_reason", string(ev.StopReason)),
						)
						reasonValue := finishError
						reason = &reasonValue
					}
					if !a.finish(ctx, out, reason) {
						return
					}
					a.state = stateFinished
					a.send(ctx, out, StreamItem{Done: true})
					return

				case domain.EventError:
					// Reported out-of-band as well, not merely embedded in
					// the payload.
					if a.diag != nil {
						a.diag.StreamError(ctx, ev.Message)
					}
					if !a.finishWith(ctx, out, finishError) {
						return
					}
					a.state = stateFinished
					a.send(ctx, out, StreamItem{Done: true})
					return
				}
			}
		}
	}()

	return out
}

func (a *StreamAdapter) send(ctx context.Context, out chan<- StreamItem, item StreamItem) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- item:
		return true
	}
}

func (a *StreamAdapter) finish(ctx context.Context, out chan<- StreamItem, reason *string) bool {
	return a.send(ctx, out, a.finishChunk(reason))
}

func (a *StreamAdapter) finishWith(ctx context.Context, out chan<- StreamItem, reason string) bool {
	return a.finish(ctx, out, &reason)
}

func (a *StreamAdapter) newChunk(choice ChunkChoice) *ChatCompletionChunk {
	return &ChatCompletionChunk{
		ID:      a.id,
		Object:  objectChatCompletionChunk,
		Created: a.created,
		Model:   a.model,
		Choices: []ChunkChoice{choice},
	}
}

func (a *StreamAdapter) roleChunk() StreamItem {
	return StreamItem{Chunk: a.newChunk(ChunkChoice{
		Index: 0,
		Delta: ChunkDelta{Role: roleAssistant},
	})}
}

func (a *StreamAdapter) contentChunk(text string) StreamItem {
	return StreamItem{Chunk: a.newChunk(ChunkChoice{
		Index: 0,
		Delta: ChunkDelta{Content: &text},
	})}
}

func (a *StreamAdapter) finishChunk(reason *string) StreamItem {
	return StreamItem{Chunk: a.newChunk(ChunkChoice{
		Index:        0,
		Delta:        ChunkDelta{},
		FinishReason: reason,
	})}
}
