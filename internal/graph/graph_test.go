package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galinilin/docgemma-connect/internal/events"
)

const (
	nA NodeID = "a"
	nB NodeID = "b"
	nC NodeID = "c"
)

func setResp(resp string) NodeFunc {
	return func(_ context.Context, s *TurnState, _ *events.Emitter) (Partial, error) {
		return Partial{FinalResponse: &resp}, nil
	}
}

// TestRunLinearGraphEmitsMatchedNodeStartEnd covers invariant I4: every
// node_start has exactly one matching node_end before the next node_start.
func TestRunLinearGraphEmitsMatchedNodeStartEnd(t *testing.T) {
	g := New(DefaultConfig())
	g.AddNode(nA, "A", setResp("from a"), nB)
	g.AddNode(nB, "B", setResp("from b"), End)
	g.SetEntry(nA)

	recorder := events.NewRecorder()
	emitter := events.NewEmitter(recorder, "sess-1")
	s := &TurnState{}

	pause, err := g.Run(context.Background(), "sess-1", s, emitter)
	require.NoError(t, err)
	assert.Nil(t, pause)
	assert.Equal(t, "from b", s.FinalResponse)

	var kinds []events.Kind
	for _, e := range recorder.Events() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []events.Kind{
		events.KindNodeStart, events.KindNodeEnd,
		events.KindNodeStart, events.KindNodeEnd,
	}, kinds)
	assert.Equal(t, "a", recorder.Events()[0].NodeStart.NodeID)
	assert.Equal(t, "b", recorder.Events()[2].NodeStart.NodeID)
}

func TestRunConditionalEdgeRoutesOnState(t *testing.T) {
	g := New(DefaultConfig())
	g.AddConditionalNode(nA, "A", func(_ context.Context, s *TurnState, _ *events.Emitter) (Partial, error) {
		return Partial{}, nil
	}, func(s *TurnState) NodeID {
		if s.Intent == IntentToolNeeded {
			return nB
		}
		return nC
	})
	g.AddNode(nB, "B", setResp("tool path"), End)
	g.AddNode(nC, "C", setResp("direct path"), End)
	g.SetEntry(nA)

	s := &TurnState{Intent: IntentDirect}
	_, err := g.Run(context.Background(), "sess-1", s, events.NewEmitter(nil, "sess-1"))
	require.NoError(t, err)
	assert.Equal(t, "direct path", s.FinalResponse)

	s2 := &TurnState{Intent: IntentToolNeeded}
	_, err = g.Run(context.Background(), "sess-1", s2, events.NewEmitter(nil, "sess-1"))
	require.NoError(t, err)
	assert.Equal(t, "tool path", s2.FinalResponse)
}

func TestRunPausesAtInterruptBeforeBoundary(t *testing.T) {
	g := New(DefaultConfig())
	g.AddNode(nA, "A", func(_ context.Context, s *TurnState, _ *events.Emitter) (Partial, error) {
		tool := "check_drug_safety"
		return Partial{CurrentTool: &tool}, nil
	}, nB)
	g.AddNode(nB, "B", setResp("executed"), End)
	g.SetEntry(nA)
	g.InterruptBefore(string(nB))

	s := &TurnState{}
	recorder := events.NewRecorder()
	pause, err := g.Run(context.Background(), "sess-1", s, events.NewEmitter(recorder, "sess-1"))
	require.NoError(t, err)
	require.NotNil(t, pause, "must pause ahead of the interrupt boundary rather than run it")
	assert.Equal(t, nB, pause.Checkpoint.PausedAt)
	assert.Equal(t, "check_drug_safety", s.CurrentTool)
	assert.Empty(t, s.FinalResponse, "the boundary node must not have run yet")

	for _, e := range recorder.Events() {
		if e.NodeStart != nil {
			assert.NotEqual(t, "b", e.NodeStart.NodeID, "node b must never start before resume")
		}
	}

	got := g.CheckpointFor(pause.Checkpoint.ID)
	require.NotNil(t, got)
	assert.Same(t, pause.Checkpoint, got)
}

func TestResumeContinuesFromPausedAtAndConsumesCheckpoint(t *testing.T) {
	g := New(DefaultConfig())
	g.AddNode(nA, "A", func(_ context.Context, s *TurnState, _ *events.Emitter) (Partial, error) {
		tool := "check_drug_safety"
		return Partial{CurrentTool: &tool}, nil
	}, nB)
	g.AddNode(nB, "B", setResp("executed"), End)
	g.SetEntry(nA)
	g.InterruptBefore(string(nB))

	s := &TurnState{}
	pause, err := g.Run(context.Background(), "sess-1", s, events.NewEmitter(nil, "sess-1"))
	require.NoError(t, err)
	require.NotNil(t, pause)

	_, err = g.Resume(context.Background(), pause.Checkpoint, events.NewEmitter(nil, "sess-1"))
	require.NoError(t, err)
	assert.Equal(t, "executed", s.FinalResponse)

	assert.Nil(t, g.CheckpointFor(pause.Checkpoint.ID), "Resume must consume the checkpoint regardless of outcome")
}

func TestResumeAppliesCallerPatchToPausedState(t *testing.T) {
	g := New(DefaultConfig())
	g.AddNode(nA, "A", func(_ context.Context, s *TurnState, _ *events.Emitter) (Partial, error) {
		tool := "prescribe_medication"
		return Partial{CurrentTool: &tool}, nil
	}, nB)
	g.AddNode(nB, "B", func(_ context.Context, s *TurnState, _ *events.Emitter) (Partial, error) {
		t := "tool ran, should have been skipped"
		return Partial{FinalResponse: &t}, nil
	}, End)
	g.AddNode(nC, "C", setResp("rejected path"), End)
	g.SetEntry(nA)
	g.InterruptBefore(string(nB))

	s := &TurnState{}
	pause, err := g.Run(context.Background(), "sess-1", s, events.NewEmitter(nil, "sess-1"))
	require.NoError(t, err)
	require.NotNil(t, pause)

	cp := pause.Checkpoint
	cp.State.CurrentTool = ""
	cp.PausedAt = nC

	_, err = g.Resume(context.Background(), cp, events.NewEmitter(nil, "sess-1"))
	require.NoError(t, err)
	assert.Equal(t, "rejected path", s.FinalResponse, "patched PausedAt must route around the boundary node entirely")
}

func TestRunNoOpWhenApprovalGatingDisabled(t *testing.T) {
	g := New(Config{MaxToolIterations: 5, ApprovalGating: false})
	g.AddNode(nA, "A", func(_ context.Context, s *TurnState, _ *events.Emitter) (Partial, error) {
		return Partial{}, nil
	}, nB)
	g.AddNode(nB, "B", setResp("ran straight through"), End)
	g.SetEntry(nA)
	g.InterruptBefore(string(nB))

	s := &TurnState{}
	pause, err := g.Run(context.Background(), "sess-1", s, events.NewEmitter(nil, "sess-1"))
	require.NoError(t, err)
	assert.Nil(t, pause, "gating disabled must never pause, even at a configured boundary")
	assert.Equal(t, "ran straight through", s.FinalResponse)
}

func TestRunPropagatesNodeErrorWithoutMergingPartialState(t *testing.T) {
	g := New(DefaultConfig())
	wantErr := errors.New("model adapter failure")
	g.AddNode(nA, "A", func(_ context.Context, s *TurnState, _ *events.Emitter) (Partial, error) {
		resp := "should never be observed"
		return Partial{FinalResponse: &resp}, wantErr
	}, End)
	g.SetEntry(nA)

	s := &TurnState{}
	pause, err := g.Run(context.Background(), "sess-1", s, events.NewEmitter(nil, "sess-1"))
	assert.Same(t, wantErr, err)
	assert.Nil(t, pause)
	assert.Empty(t, s.FinalResponse, "a node error must not merge its partial update")
}

func TestRunUnknownNodeErrors(t *testing.T) {
	g := New(DefaultConfig())
	g.AddNode(nA, "A", setResp("a"), nB) // nB is never registered
	g.SetEntry(nA)

	_, err := g.Run(context.Background(), "sess-1", &TurnState{}, events.NewEmitter(nil, "sess-1"))
	require.Error(t, err)
}

func TestMaxToolIterationsFallsBackToDefault(t *testing.T) {
	g := New(Config{MaxToolIterations: 0, ApprovalGating: true})
	assert.Equal(t, DefaultConfig().MaxToolIterations, g.MaxToolIterations())
}

func TestDiscardCheckpointForgetsIt(t *testing.T) {
	g := New(DefaultConfig())
	g.AddNode(nA, "A", func(_ context.Context, s *TurnState, _ *events.Emitter) (Partial, error) {
		tool := "check_drug_safety"
		return Partial{CurrentTool: &tool}, nil
	}, nB)
	g.AddNode(nB, "B", setResp("executed"), End)
	g.SetEntry(nA)
	g.InterruptBefore(string(nB))

	pause, err := g.Run(context.Background(), "sess-1", &TurnState{}, events.NewEmitter(nil, "sess-1"))
	require.NoError(t, err)
	require.NotNil(t, pause)

	g.DiscardCheckpoint(pause.Checkpoint.ID)
	assert.Nil(t, g.CheckpointFor(pause.Checkpoint.ID))
}
