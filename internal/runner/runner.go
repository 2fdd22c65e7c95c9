// Package runner implements the Agent Runner (spec §4.G): the two
// public turn operations, start and resume-with-decision, composed from
// the Graph Runtime, the Session Store and the Event Channel. It owns
// the translation from internal runtime events to the clinical trace
// appended to every completion event, grounded in
// original_source/src/docgemma/api/services/agent_runner.py's
// AgentRunner.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/galinilin/docgemma-connect/internal/events"
	"github.com/galinilin/docgemma-connect/internal/graph"
	"github.com/galinilin/docgemma-connect/internal/model"
	"github.com/galinilin/docgemma-connect/internal/nodes"
	"github.com/galinilin/docgemma-connect/internal/sessions"
	"github.com/galinilin/docgemma-connect/pkg/models"
)

// ErrNoPendingApproval is returned by ResumeWithDecision when the session
// has no tool approval awaiting a decision.
var ErrNoPendingApproval = errors.New("runner: session has no pending tool approval")

// ErrCheckpointLost is returned when a session's recorded checkpoint id
// no longer resolves to an in-memory checkpoint, which happens after a
// process restart since checkpoints never persist (spec §4.C, §9).
var ErrCheckpointLost = errors.New("runner: checkpoint no longer available, start a new turn")

// Runner composes the Graph Runtime over a Session Store.
type Runner struct {
	graph *graph.Graph
	store sessions.Store
}

// New builds a Runner driving g and persisting through store.
func New(g *graph.Graph, store sessions.Store) *Runner {
	return &Runner{graph: g, store: store}
}

// StartTurnRequest carries the inputs of spec §4.G's "Start turn"
// operation.
type StartTurnRequest struct {
	SessionID          string
	UserQuery          string
	ImageBytes         []byte
	ToolCallingEnabled bool
	ThinkingEnabled    bool
}

// StartTurn allocates fresh turn state with every turn-level output
// explicitly zero, injects it into the Graph Runtime, and streams events
// to sink until the turn reaches a terminal node or pauses at the
// tool-approval boundary.
func (r *Runner) StartTurn(ctx context.Context, req StartTurnRequest, sink events.Sink) error {
	sess, err := r.store.Get(ctx, req.SessionID)
	if err != nil {
		return err
	}
	if err := r.store.ResetForNewTurn(ctx, req.SessionID); err != nil {
		return err
	}
	if err := r.store.AppendMessage(ctx, req.SessionID, models.Message{
		Role:    models.RoleUser,
		Content: req.UserQuery,
	}); err != nil {
		return err
	}

	history := historyFromMessages(sess.Messages)
	state := graph.NewTurnState(req.UserQuery, req.ImageBytes, history, sess.PatientHint, req.ToolCallingEnabled, req.ThinkingEnabled)

	recorder := events.NewRecorder()
	emitter := events.NewEmitter(events.NewMultiSink(sink, recorder), req.SessionID)

	pause, runErr := r.graph.Run(ctx, req.SessionID, state, emitter)
	return r.finishTurn(ctx, req.SessionID, state, pause, runErr, recorder, emitter)
}

// ResumeWithDecisionRequest carries the inputs of spec §4.G's "Resume
// with decision" operation.
type ResumeWithDecisionRequest struct {
	SessionID       string
	Approved        bool
	RejectionReason string
}

// ResumeWithDecision clears the session's pending approval and either
// resumes the paused tool_execute node (approved) or patches the paused
// state to skip straight to synthesis with a synthetic rejected
// tool-result (rejected), per spec §4.G.
func (r *Runner) ResumeWithDecision(ctx context.Context, req ResumeWithDecisionRequest, sink events.Sink) error {
	sess, err := r.store.Get(ctx, req.SessionID)
	if err != nil {
		return err
	}
	if sess.PendingApproval == nil {
		return ErrNoPendingApproval
	}

	cp := r.graph.CheckpointFor(sess.PendingApproval.CheckpointID)
	if cp == nil {
		_ = r.store.ClearPendingApproval(ctx, req.SessionID)
		_ = r.store.SetStatus(ctx, req.SessionID, models.SessionError)
		return ErrCheckpointLost
	}

	if err := r.store.ClearPendingApproval(ctx, req.SessionID); err != nil {
		return err
	}

	recorder := events.NewRecorder()
	emitter := events.NewEmitter(events.NewMultiSink(sink, recorder), req.SessionID)

	if !req.Approved {
		reason := req.RejectionReason
		if reason == "" {
			reason = "rejected by clinician"
		}
		rejected := graph.ToolResult{
			ToolName:     cp.State.CurrentTool,
			Label:        cp.State.CurrentTool,
			Args:         cp.State.CurrentArgs,
			Success:      false,
			ErrorMessage: reason,
			Formatted:    fmt.Sprintf("%s was not approved: %s", cp.State.CurrentTool, reason),
		}
		cp.State.CurrentTool = ""
		cp.State.CurrentArgs = nil
		cp.State.ToolResults = append(cp.State.ToolResults, rejected)
		cp.State.StepCount++
		cp.PausedAt = nodes.NodeSynthesize
	}

	pause, runErr := r.graph.Resume(ctx, cp, emitter)
	return r.finishTurn(ctx, req.SessionID, cp.State, pause, runErr, recorder, emitter)
}

// finishTurn handles the three possible outcomes of a Run/Resume call:
// a runtime error, a pause at the approval boundary, or a completed
// turn needing its clinical trace built and appended to the session.
func (r *Runner) finishTurn(ctx context.Context, sessionID string, state *graph.TurnState, pause *graph.PauseSignal, runErr error, recorder *events.Recorder, emitter *events.Emitter) error {
	if runErr != nil {
		emitter.Error(ctx, classifyRunError(ctx, runErr), runErr.Error(), false)
		_ = r.store.SetStatus(ctx, sessionID, models.SessionError)
		return runErr
	}

	if pause != nil {
		pa := models.PendingApproval{
			ToolName:     state.CurrentTool,
			Args:         state.CurrentArgs,
			Intent:       state.TaskSummary,
			CheckpointID: pause.Checkpoint.ID,
		}
		if err := r.store.SetPendingApproval(ctx, sessionID, pa); err != nil {
			return err
		}
		emitter.ApprovalRequest(ctx, state.CurrentTool, state.CurrentArgs, state.TaskSummary)
		return nil
	}

	trace := buildClinicalTrace(state, recorder)
	if err := r.store.AppendMessage(ctx, sessionID, models.Message{
		Role:    models.RoleAssistant,
		Content: state.FinalResponse,
	}); err != nil {
		return err
	}
	if err := r.store.SetStatus(ctx, sessionID, models.SessionIdle); err != nil {
		return err
	}

	emitter.Completion(ctx, state.FinalResponse, len(state.ToolResults), trace, state.ModelThinking)
	return nil
}

// classifyRunError maps a Run/Resume error onto the Event Channel's
// ErrorKind taxonomy (spec §8's boundary behaviors): a cancelled context
// surfaces as cancelled, a schema-violating structured generation
// surfaces as schema_violation, and everything else falls back to
// internal.
func classifyRunError(ctx context.Context, err error) events.ErrorKind {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return events.ErrorKindCancelled
	}

	var adapterErr *model.AdapterError
	if errors.As(err, &adapterErr) && adapterErr.Kind == model.ErrorKindSchemaViolation {
		return events.ErrorKindSchemaViolation
	}

	return events.ErrorKindInternal
}

func historyFromMessages(msgs []models.Message) []graph.HistoryMessage {
	out := make([]graph.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, graph.HistoryMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// buildClinicalTrace summarizes a finished turn as an ordered sequence
// of thought/tool_call/synthesis steps with durations, attributing tool
// durations to each successful tool-result in execution order and the
// reasoning/synthesis duration to the synthesize node's own timing
// (spec §4.G, grounded on AgentRunner._build_clinical_trace).
//
// recorder only observes node evaluations since the last Run/Resume
// call, so a turn that paused for approval more than once has tool
// durations only for the most recent resume; earlier tool-result steps
// fall back to a zero duration rather than a fabricated one.
func buildClinicalTrace(state *graph.TurnState, recorder *events.Recorder) []events.TraceStep {
	synthesizeDuration := nodeDuration(recorder, string(nodes.NodeSynthesize))
	toolDurations := nodeDurations(recorder, string(nodes.NodeToolExecute))

	var successfulIdx []int
	for i, tr := range state.ToolResults {
		if tr.Success {
			successfulIdx = append(successfulIdx, i)
		}
	}
	durByIdx := make(map[int]time.Duration, len(toolDurations))
	start := len(successfulIdx) - len(toolDurations)
	if start < 0 {
		start = 0
	}
	for j, idx := range successfulIdx[start:] {
		if j < len(toolDurations) {
			durByIdx[idx] = toolDurations[j]
		}
	}

	var steps []events.TraceStep
	if state.ModelThinking != "" {
		steps = append(steps, events.TraceStep{
			Kind:     events.TraceThought,
			Summary:  truncate(state.ModelThinking, 500),
			Duration: synthesizeDuration,
		})
	}

	for i, tr := range state.ToolResults {
		if !tr.Success {
			continue
		}
		steps = append(steps, events.TraceStep{
			Kind:     events.TraceToolCall,
			Summary:  tr.Formatted,
			Duration: durByIdx[i],
		})
	}

	steps = append(steps, events.TraceStep{
		Kind:     events.TraceSynthesis,
		Summary:  "Combined findings into a clinical response",
		Duration: synthesizeDuration,
	})

	return steps
}

func nodeDuration(recorder *events.Recorder, nodeID string) time.Duration {
	durs := nodeDurations(recorder, nodeID)
	if len(durs) == 0 {
		return 0
	}
	return durs[len(durs)-1]
}

func nodeDurations(recorder *events.Recorder, nodeID string) []time.Duration {
	var out []time.Duration
	for _, e := range recorder.Events() {
		if e.Kind == events.KindNodeEnd && e.NodeEnd != nil && e.NodeEnd.NodeID == nodeID {
			out = append(out, e.NodeEnd.Duration)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
