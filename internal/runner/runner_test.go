package runner_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galinilin/docgemma-connect/internal/events"
	"github.com/galinilin/docgemma-connect/internal/graph"
	"github.com/galinilin/docgemma-connect/internal/model"
	"github.com/galinilin/docgemma-connect/internal/nodes"
	"github.com/galinilin/docgemma-connect/internal/runner"
	"github.com/galinilin/docgemma-connect/internal/sessions"
	"github.com/galinilin/docgemma-connect/internal/tools"
	"github.com/galinilin/docgemma-connect/pkg/models"
)

func newSession(t *testing.T, store sessions.Store) string {
	t.Helper()
	sess, err := store.Create(context.Background())
	require.NoError(t, err)
	return sess.ID
}

func TestRunnerStartTurnDirectResponse(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryStore()
	adapter := model.NewFakeAdapter()
	adapter.QueueText("Take the medication with food twice daily.", nil)

	g := nodes.Build(graph.DefaultConfig(), nodes.Deps{Adapter: adapter, Registry: tools.NewRegistry(), MaxToolIterations: 5})
	r := runner.New(g, store)

	sessionID := newSession(t, store)
	recorder := events.NewRecorder()

	err := r.StartTurn(ctx, runner.StartTurnRequest{
		SessionID:          sessionID,
		UserQuery:          "How should I take ibuprofen?",
		ToolCallingEnabled: false,
	}, recorder)
	require.NoError(t, err)

	var completion *events.CompletionPayload
	for _, e := range recorder.Events() {
		if e.Kind == events.KindCompletion {
			completion = e.Completion
		}
	}
	require.NotNil(t, completion)
	assert.Equal(t, "Take the medication with food twice daily.", completion.FinalResponse)
	assert.Equal(t, 0, completion.ToolCallsMade)

	sess, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionIdle, sess.Status)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, models.RoleAssistant, sess.Messages[1].Role)
}

func TestRunnerApprovalPauseAndResumeApproved(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryStore()
	adapter := model.NewFakeAdapter()

	adapter.QueueStructured(map[string]any{
		"intent":         "tool-needed",
		"task_summary":   "check drug safety",
		"suggested_tool": "check_drug_safety",
	}, nil)
	adapter.QueueStructured(map[string]any{
		"tool_name": "check_drug_safety",
		"drug_name": "dofetilide",
	}, nil)

	registry := tools.NewRegistry()
	registry.Register(tools.Definition{
		Name:        "check_drug_safety",
		Description: "FDA safety database",
		ArgOrder:    []string{"drug_name"},
		Args:        map[string]string{"drug_name": "the drug to check"},
		Executor: func(_ context.Context, args map[string]any) tools.Result {
			return tools.Ok(map[string]any{"boxed_warnings": []string{"QT prolongation"}})
		},
	})

	g := nodes.Build(graph.DefaultConfig(), nodes.Deps{Adapter: adapter, Registry: registry, MaxToolIterations: 5})
	r := runner.New(g, store)

	sessionID := newSession(t, store)
	recorder := events.NewRecorder()

	require.NoError(t, r.StartTurn(ctx, runner.StartTurnRequest{
		SessionID:          sessionID,
		UserQuery:          "Is dofetilide safe for this patient?",
		ToolCallingEnabled: true,
	}, recorder))

	var approvalSeen bool
	for _, e := range recorder.Events() {
		if e.Kind == events.KindToolApprovalRequest {
			approvalSeen = true
			assert.Equal(t, "check_drug_safety", e.Approval.ToolName)
		}
		assert.NotEqual(t, events.KindCompletion, e.Kind, "must not complete before approval is decided")
	}
	require.True(t, approvalSeen)

	sess, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, sess.PendingApproval)
	assert.Equal(t, "check_drug_safety", sess.PendingApproval.ToolName)

	adapter.QueueStructured(map[string]any{
		"quality":   "success_rich",
		"reasoning": "boxed warning found",
	}, nil)
	adapter.QueueText("Dofetilide carries a boxed QT-prolongation warning; monitor closely.", nil)

	resumeRecorder := events.NewRecorder()
	require.NoError(t, r.ResumeWithDecision(ctx, runner.ResumeWithDecisionRequest{
		SessionID: sessionID,
		Approved:  true,
	}, resumeRecorder))

	var completion *events.CompletionPayload
	for _, e := range resumeRecorder.Events() {
		if e.Kind == events.KindCompletion {
			completion = e.Completion
		}
	}
	require.NotNil(t, completion)
	assert.Equal(t, 1, completion.ToolCallsMade)
	require.Len(t, completion.Trace, 2)
	assert.Equal(t, events.TraceToolCall, completion.Trace[0].Kind)
	assert.Equal(t, events.TraceSynthesis, completion.Trace[1].Kind)

	sess, err = store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Nil(t, sess.PendingApproval)
}

func TestRunnerEmitsSchemaViolationErrorKind(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryStore()
	adapter := model.NewFakeAdapter()
	adapter.QueueStructured(nil, model.ErrSchemaViolation(errors.New("output did not match schema")))

	g := nodes.Build(graph.DefaultConfig(), nodes.Deps{Adapter: adapter, Registry: tools.NewRegistry(), MaxToolIterations: 5})
	r := runner.New(g, store)
	sessionID := newSession(t, store)
	recorder := events.NewRecorder()

	err := r.StartTurn(ctx, runner.StartTurnRequest{
		SessionID:          sessionID,
		UserQuery:          "is dofetilide safe",
		ToolCallingEnabled: true,
	}, recorder)
	require.Error(t, err)

	var errEvent *events.ErrorPayload
	for _, e := range recorder.Events() {
		if e.Kind == events.KindError {
			errEvent = e.Error
		}
	}
	require.NotNil(t, errEvent)
	assert.Equal(t, events.ErrorKindSchemaViolation, errEvent.Kind)
}

func TestRunnerEmitsCancelledErrorKind(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryStore()
	adapter := model.NewFakeAdapter()
	adapter.QueueStructured(nil, context.Canceled)

	g := nodes.Build(graph.DefaultConfig(), nodes.Deps{Adapter: adapter, Registry: tools.NewRegistry(), MaxToolIterations: 5})
	r := runner.New(g, store)
	sessionID := newSession(t, store)
	recorder := events.NewRecorder()

	err := r.StartTurn(ctx, runner.StartTurnRequest{
		SessionID:          sessionID,
		UserQuery:          "is dofetilide safe",
		ToolCallingEnabled: true,
	}, recorder)
	require.Error(t, err)

	var errEvent *events.ErrorPayload
	for _, e := range recorder.Events() {
		if e.Kind == events.KindError {
			errEvent = e.Error
		}
	}
	require.NotNil(t, errEvent)
	assert.Equal(t, events.ErrorKindCancelled, errEvent.Kind)
}

func TestRunnerResumeRejectedSkipsToSynthesis(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryStore()
	adapter := model.NewFakeAdapter()

	adapter.QueueStructured(map[string]any{
		"intent":         "tool-needed",
		"task_summary":   "prescribe medication",
		"suggested_tool": "prescribe_medication",
	}, nil)
	adapter.QueueStructured(map[string]any{
		"tool_name":  "prescribe_medication",
		"drug_name":  "warfarin",
		"patient_id": "pat-1001",
	}, nil)

	var executed atomic.Bool
	registry := tools.NewRegistry()
	registry.Register(tools.Definition{
		Name:        "prescribe_medication",
		Description: "Medication prescription",
		ArgOrder:    []string{"drug_name", "patient_id"},
		Args:        map[string]string{"drug_name": "drug", "patient_id": "patient"},
		Executor: func(_ context.Context, args map[string]any) tools.Result {
			executed.Store(true)
			return tools.Ok(nil)
		},
	})

	g := nodes.Build(graph.DefaultConfig(), nodes.Deps{Adapter: adapter, Registry: registry, MaxToolIterations: 5})
	r := runner.New(g, store)
	sessionID := newSession(t, store)

	require.NoError(t, r.StartTurn(ctx, runner.StartTurnRequest{
		SessionID:          sessionID,
		UserQuery:          "Prescribe warfarin for pat-1001",
		ToolCallingEnabled: true,
	}, events.NewRecorder()))

	adapter.QueueText("I was unable to complete that prescription; it was not approved.", nil)

	resumeRecorder := events.NewRecorder()
	require.NoError(t, r.ResumeWithDecision(ctx, runner.ResumeWithDecisionRequest{
		SessionID:       sessionID,
		Approved:        false,
		RejectionReason: "needs second clinician sign-off",
	}, resumeRecorder))

	var completion *events.CompletionPayload
	for _, e := range resumeRecorder.Events() {
		if e.Kind == events.KindCompletion {
			completion = e.Completion
		}
	}
	require.NotNil(t, completion)
	assert.Equal(t, 1, completion.ToolCallsMade)
	assert.False(t, executed.Load(), "rejected tool must never execute")
}
