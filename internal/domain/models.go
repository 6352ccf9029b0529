package domain

// QueryRequest is the single-prompt request understood by the agent engine.
type QueryRequest struct {
	Prompt       string `json:"prompt"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Model        string `json:"model"`
	User         string `json:"user,omitempty"`
}

// BlockKind tags a content block in an engine response.
type BlockKind string

const (
	// BlockText is plain assistant text. Any other kind (thinking, tool
	// traces) is dropped when translating to the external surface.
	BlockText     BlockKind = "text"
	BlockThinking BlockKind = "thinking"
)

// ContentBlock is one tagged unit of engine output.
type ContentBlock struct {
	Kind BlockKind `json:"type"`
	Text string    `json:"text,omitempty"`
}

// StopReason classifies why the engine finished a response.
type StopReason string

const (
	StopCompleted   StopReason = "completed"
	StopMaxTurns    StopReason = "max_turns_reached"
	StopInterrupted StopReason = "interrupted"
	StopError       StopReason = "error"
	StopNone        StopReason = "none"
)

// Usage tracks token consumption reported by the engine.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// QueryResult is a completed engine response.
type QueryResult struct {
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason StopReason     `json:"stop_reason"`
	Usage      *Usage         `json:"usage,omitempty"`
}

// EventKind tags an incremental engine stream event.
type EventKind string

const (
	EventPartial EventKind = "partial"
	EventResult  EventKind = "result"
	EventError   EventKind = "error"
)

// StreamEvent is one incremental event from a streaming engine query.
// Exactly one of the payload fields is meaningful per kind: Text for partial,
// StopReason for result, Message for error.
type StreamEvent struct {
	Kind       EventKind
	Text       string
	StopReason StopReason
	Message    string
}
