package events

import (
	"context"
	"sync/atomic"
	"time"
)

// Emitter stamps events with a monotonic per-turn sequence number and
// forwards them to an underlying Sink. One Emitter is constructed per
// turn by the Agent Runner, grounded in the teacher's
// internal/agent.EventEmitter atomic-sequence pattern.
type Emitter struct {
	sink      Sink
	sessionID string
	seq       atomic.Uint64
}

// NewEmitter builds an Emitter for one turn of sessionID, forwarding to
// sink.
func NewEmitter(sink Sink, sessionID string) *Emitter {
	if sink == nil {
		sink = NopSink{}
	}
	return &Emitter{sink: sink, sessionID: sessionID}
}

func (e *Emitter) base(kind Kind) Event {
	return Event{
		Kind:      kind,
		Time:      time.Now(),
		Sequence:  e.seq.Add(1),
		SessionID: e.sessionID,
	}
}

func (e *Emitter) NodeStart(ctx context.Context, nodeID, label string) {
	ev := e.base(KindNodeStart)
	ev.NodeStart = &NodeStartPayload{NodeID: nodeID, Label: label}
	e.sink.Emit(ctx, ev)
}

func (e *Emitter) NodeEnd(ctx context.Context, nodeID, label string, dur time.Duration) {
	ev := e.base(KindNodeEnd)
	ev.NodeEnd = &NodeEndPayload{NodeID: nodeID, Label: label, Duration: dur}
	e.sink.Emit(ctx, ev)
}

func (e *Emitter) ApprovalRequest(ctx context.Context, toolName string, args map[string]any, intent string) {
	ev := e.base(KindToolApprovalRequest)
	ev.Approval = &ApprovalPayload{ToolName: toolName, Args: args, Intent: intent}
	e.sink.Emit(ctx, ev)
}

func (e *Emitter) ToolExecutionStart(ctx context.Context, toolName string, args map[string]any) {
	ev := e.base(KindToolExecutionStart)
	ev.ToolStart = &ToolStartPayload{ToolName: toolName, Args: args}
	e.sink.Emit(ctx, ev)
}

func (e *Emitter) ToolExecutionEnd(ctx context.Context, toolName string, success bool, result any, dur time.Duration) {
	ev := e.base(KindToolExecutionEnd)
	ev.ToolEnd = &ToolEndPayload{ToolName: toolName, Success: success, Result: result, Duration: dur}
	e.sink.Emit(ctx, ev)
}

func (e *Emitter) StreamingText(ctx context.Context, chunk, nodeID string) {
	ev := e.base(KindStreamingText)
	ev.Streaming = &StreamingPayload{Chunk: chunk, NodeID: nodeID}
	e.sink.Emit(ctx, ev)
}

func (e *Emitter) Completion(ctx context.Context, finalResponse string, toolCallsMade int, trace []TraceStep, modelThinking string) {
	ev := e.base(KindCompletion)
	ev.Completion = &CompletionPayload{
		FinalResponse: finalResponse,
		ToolCallsMade: toolCallsMade,
		Trace:         trace,
		ModelThinking: modelThinking,
	}
	e.sink.Emit(ctx, ev)
}

func (e *Emitter) Error(ctx context.Context, kind ErrorKind, message string, recoverable bool) {
	ev := e.base(KindError)
	ev.Error = &ErrorPayload{Kind: kind, Message: message, Recoverable: recoverable}
	e.sink.Emit(ctx, ev)
}
