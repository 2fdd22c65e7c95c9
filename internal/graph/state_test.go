package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewTurnStateZeroesTurnLevelOutputs(t *testing.T) {
	s := NewTurnState("what dose?", nil, []HistoryMessage{{Role: "user", Content: "hi"}}, "patient-42", true, false)
	assert.Equal(t, "what dose?", s.UserQuery)
	assert.Equal(t, "patient-42", s.SessionPatientHint)
	assert.True(t, s.ToolCallingEnabled)
	assert.False(t, s.ThinkingEnabled)

	assert.Empty(t, s.FinalResponse)
	assert.Empty(t, s.ToolResults)
	assert.Zero(t, s.StepCount)
	assert.Empty(t, s.ErrorMessages)
	assert.Equal(t, Intent(""), s.Intent)
}

func TestMergeScalarOverwrite(t *testing.T) {
	s := &TurnState{CurrentTool: "old_tool"}
	intent := IntentToolNeeded
	s.Merge(Partial{Intent: &intent, CurrentTool: strPtr("check_drug_safety")})
	assert.Equal(t, IntentToolNeeded, s.Intent)
	assert.Equal(t, "check_drug_safety", s.CurrentTool)
}

func TestMergeNilFieldLeavesStateUnchanged(t *testing.T) {
	s := &TurnState{CurrentTool: "check_drug_safety", TaskSummary: "check interaction"}
	s.Merge(Partial{})
	assert.Equal(t, "check_drug_safety", s.CurrentTool)
	assert.Equal(t, "check interaction", s.TaskSummary)
}

func TestMergeAppendsToolResultsAndErrorMessages(t *testing.T) {
	s := &TurnState{}
	s.Merge(Partial{AppendToolResults: []ToolResult{{ToolName: "a", Success: true}}})
	s.Merge(Partial{AppendToolResults: []ToolResult{{ToolName: "b", Success: true}}})
	require.Len(t, s.ToolResults, 2)
	assert.Equal(t, "a", s.ToolResults[0].ToolName)
	assert.Equal(t, "b", s.ToolResults[1].ToolName)

	s.Merge(Partial{AppendErrorMessages: []string{"timeout on a"}})
	s.Merge(Partial{AppendErrorMessages: []string{"timeout on b"}})
	assert.Equal(t, []string{"timeout on a", "timeout on b"}, s.ErrorMessages)
}

func TestMergeIncrementStep(t *testing.T) {
	s := &TurnState{StepCount: 2}
	s.Merge(Partial{IncrementStep: true})
	assert.Equal(t, 3, s.StepCount)
	s.Merge(Partial{})
	assert.Equal(t, 3, s.StepCount, "merging an empty partial must not increment")
}

func TestMergeNonNilEmptyCurrentArgsOverwrites(t *testing.T) {
	s := &TurnState{CurrentArgs: map[string]any{"drug_name": "warfarin"}}
	s.Merge(Partial{CurrentArgs: map[string]any{}})
	assert.Empty(t, s.CurrentArgs)
	assert.NotNil(t, s.CurrentArgs, "a non-nil empty map is a deliberate overwrite, distinct from unchanged")
}

func TestSubNeedCountFloorsAtOne(t *testing.T) {
	s := &TurnState{}
	assert.Equal(t, 1, s.subNeedCount())

	s.Entities.ActionVerbs = []string{"check"}
	assert.Equal(t, 1, s.subNeedCount())

	s.Entities.ActionVerbs = []string{"check", "compare", "summarize"}
	assert.Equal(t, 3, s.subNeedCount())
}

func TestToolLoopDoneHardCeiling(t *testing.T) {
	s := &TurnState{StepCount: 5}
	assert.True(t, s.ToolLoopDone(5), "step count at the ceiling must terminate regardless of sub-need count")
}

func TestToolLoopDoneSubNeedSatisfied(t *testing.T) {
	s := &TurnState{StepCount: 1}
	assert.True(t, s.ToolLoopDone(5), "a single-need turn terminates after its first result")
}

func TestToolLoopDoneNotYetSatisfied(t *testing.T) {
	s := &TurnState{StepCount: 1}
	s.Entities.ActionVerbs = []string{"check", "compare"}
	assert.False(t, s.ToolLoopDone(5))
}
