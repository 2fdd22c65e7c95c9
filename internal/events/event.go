// Package events defines the typed, ordered event stream emitted by a turn
// of the Graph Runtime, and the single-producer-multiple-observer sinks
// that fan it out to connected clients and durable traces.
//
// The event shape follows the same versioned-discriminated-union pattern
// the rest of this codebase uses for its event models: one envelope type,
// one Kind discriminator, and exactly one non-nil payload per kind.
package events

import "time"

// Kind identifies the event kinds of the Event Channel.
type Kind string

const (
	KindNodeStart            Kind = "node_start"
	KindNodeEnd              Kind = "node_end"
	KindToolApprovalRequest  Kind = "tool_approval_request"
	KindToolExecutionStart   Kind = "tool_execution_start"
	KindToolExecutionEnd     Kind = "tool_execution_end"
	KindStreamingText        Kind = "streaming_text"
	KindCompletion           Kind = "completion"
	KindError                Kind = "error"
)

// Event is the envelope delivered on the channel for one session turn.
// Sequence is monotonic within a turn and is the basis for the I4/I5/I6
// ordering invariants (see spec §8).
type Event struct {
	Kind      Kind      `json:"event"`
	Time      time.Time `json:"time"`
	Sequence  uint64    `json:"seq"`
	SessionID string    `json:"session_id"`

	NodeStart  *NodeStartPayload  `json:"node_start,omitempty"`
	NodeEnd    *NodeEndPayload    `json:"node_end,omitempty"`
	Approval   *ApprovalPayload   `json:"tool_approval_request,omitempty"`
	ToolStart  *ToolStartPayload  `json:"tool_execution_start,omitempty"`
	ToolEnd    *ToolEndPayload    `json:"tool_execution_end,omitempty"`
	Streaming  *StreamingPayload  `json:"streaming_text,omitempty"`
	Completion *CompletionPayload `json:"completion,omitempty"`
	Error      *ErrorPayload      `json:"error,omitempty"`
}

// NodeStartPayload announces a node has begun evaluating.
type NodeStartPayload struct {
	NodeID string `json:"node_id"`
	Label  string `json:"label"`
}

// NodeEndPayload announces a node has finished evaluating.
type NodeEndPayload struct {
	NodeID   string        `json:"node_id"`
	Label    string        `json:"label"`
	Duration time.Duration `json:"duration"`
}

// ApprovalPayload is emitted at the interrupt-before boundary ahead of
// tool_execute. It is terminal for the current streaming epoch: the
// channel pauses here until the Agent Runner's ResumeWithDecision is
// invoked.
type ApprovalPayload struct {
	ToolName string         `json:"tool_name"`
	Args     map[string]any `json:"args"`
	Intent   string         `json:"intent"`
}

// ToolStartPayload announces a tool invocation is about to run, after
// approval (or when approval gating is disabled for that tool).
type ToolStartPayload struct {
	ToolName string         `json:"tool_name"`
	Args     map[string]any `json:"args"`
}

// ToolEndPayload reports the outcome of a tool invocation.
type ToolEndPayload struct {
	ToolName string        `json:"tool_name"`
	Success  bool          `json:"success"`
	Result   any           `json:"result,omitempty"`
	Duration time.Duration `json:"duration"`
}

// StreamingPayload carries an optional incremental text chunk from a
// model-backed node.
type StreamingPayload struct {
	Chunk  string `json:"chunk"`
	NodeID string `json:"node_id"`
}

// TraceStepKind categorizes one entry of the clinical trace.
type TraceStepKind string

const (
	TraceThought   TraceStepKind = "thought"
	TraceToolCall  TraceStepKind = "tool_call"
	TraceSynthesis TraceStepKind = "synthesis"
)

// TraceStep is one ordered entry of the clinical trace attached to the
// completion event.
type TraceStep struct {
	Kind     TraceStepKind `json:"kind"`
	Summary  string        `json:"summary"`
	Duration time.Duration `json:"duration"`
}

// CompletionPayload is one of the two possible terminal events for a turn
// (the other being ErrorPayload). Exactly one terminal event is emitted
// per turn (invariant I5).
type CompletionPayload struct {
	FinalResponse  string      `json:"final_response"`
	ToolCallsMade  int         `json:"tool_calls_made"`
	Trace          []TraceStep `json:"trace"`
	ModelThinking  string      `json:"model_thinking,omitempty"`
}

// ErrorKind classifies a terminal error event.
type ErrorKind string

const (
	ErrorKindSchemaViolation ErrorKind = "schema_violation"
	ErrorKindInternal        ErrorKind = "internal"
	ErrorKindCancelled       ErrorKind = "cancelled"
)

// ErrorPayload is the other possible terminal event for a turn.
type ErrorPayload struct {
	Kind        ErrorKind `json:"kind"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
}
