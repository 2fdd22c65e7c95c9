// Package graph implements the Graph Runtime: a declarative node/edge
// scheduler over a turn-state value, with interrupt-before boundaries and
// in-memory per-session checkpoints, grounded in
// original_source/src/docgemma/agent/graph.py and state.py.
package graph

import "github.com/galinilin/docgemma-connect/internal/tools"

// HistoryMessage is one prior turn of the conversation tail carried into
// a new turn's state.
type HistoryMessage struct {
	Role    string
	Content string
}

// Entities is the F.1 input_assembly node's deterministic extraction.
type Entities struct {
	PatientIdentifiers []string
	DrugMentions       []string
	ActionVerbs        []string
	ImagePresent       bool
}

// Intent is the F.2 intent_classify node's binary label.
type Intent string

const (
	IntentDirect     Intent = "direct"
	IntentToolNeeded Intent = "tool-needed"
)

// ResultQuality is the F.5 result_classify node's output enum.
type ResultQuality string

const (
	QualitySuccessRich      ResultQuality = "success_rich"
	QualitySuccessPartial   ResultQuality = "success_partial"
	QualityNoResults        ResultQuality = "no_results"
	QualityErrorRetryable   ResultQuality = "error_retryable"
	QualityErrorFatal       ResultQuality = "error_fatal"
)

// IsError reports whether q is one of the error_* kinds that route to
// error_handler (spec §4.F's routing table).
func (q ResultQuality) IsError() bool {
	return q == QualityErrorRetryable || q == QualityErrorFatal
}

// ErrorStrategy is the F.6 error_handler node's chosen recovery strategy.
type ErrorStrategy string

const (
	StrategyRetrySame          ErrorStrategy = "retry_same"
	StrategyRetryDifferentArgs ErrorStrategy = "retry_different_args"
	StrategySkipAndContinue    ErrorStrategy = "skip_and_continue"
	StrategyAskUser            ErrorStrategy = "ask_user"
)

// ToolResult is one entry of the turn's append-only completed-tool-results
// list (spec §3's Tool result record).
type ToolResult struct {
	ToolName    string
	Label       string
	Args        map[string]any
	Raw         any
	Formatted   string
	Success     bool
	ErrorKind   tools.ErrorKind
	ErrorMessage string
}

// TurnState is the state record flowing through the graph (spec §3's
// "Turn state", ≈20 fields). It is allocated fresh at turn start with
// every turn-level output explicitly zero, mutated only through Merge,
// and discarded after the terminal node.
type TurnState struct {
	// Inputs.
	UserQuery             string
	ImageBytes            []byte
	History               []HistoryMessage
	Entities              Entities
	CarriedImageFindings  string
	SessionPatientHint    string
	ToolCallingEnabled    bool
	ThinkingEnabled       bool
	ChartPreSummary       string

	// Intent.
	Intent        Intent
	TaskSummary   string
	SuggestedTool string

	// Tool loop.
	CurrentTool string
	CurrentArgs map[string]any
	ToolResults []ToolResult
	StepCount   int

	// Classification of the most recent result.
	ResultQuality ResultQuality
	ResultSummary string

	// Error handling.
	ErrorStrategy       ErrorStrategy
	ErrorMessages       []string
	ClarificationRequest string

	// Output.
	FinalResponse string
	ModelThinking string
}

// NewTurnState allocates fresh turn state for a new turn, guarding
// against stale data from a previous turn by leaving every turn-level
// output field at its zero value (spec §4.G Start turn).
func NewTurnState(userQuery string, imageBytes []byte, history []HistoryMessage, patientHint string, toolCallingEnabled, thinkingEnabled bool) *TurnState {
	return &TurnState{
		UserQuery:          userQuery,
		ImageBytes:         imageBytes,
		History:            history,
		SessionPatientHint: patientHint,
		ToolCallingEnabled: toolCallingEnabled,
		ThinkingEnabled:    thinkingEnabled,
	}
}

// Partial is a node's returned update: a subset of TurnState fields to
// merge into the current state. Append-only fields (ToolResults,
// ErrorMessages) are concatenated; every other non-zero field overwrites
// the corresponding state field (spec §4.E's merge rule). A nil pointer
// field means "leave unchanged"; a non-nil pointer to a zero value is a
// deliberate overwrite (e.g. clearing CurrentTool on rejection).
type Partial struct {
	Intent        *Intent
	TaskSummary   *string
	SuggestedTool *string

	CurrentTool *string
	CurrentArgs map[string]any // nil means unchanged; non-nil (incl. empty) overwrites
	AppendToolResults []ToolResult
	IncrementStep     bool

	ResultQuality *ResultQuality
	ResultSummary *string

	ErrorStrategy        *ErrorStrategy
	AppendErrorMessages  []string
	ClarificationRequest *string

	FinalResponse *string
	ModelThinking *string

	Entities             *Entities
	CarriedImageFindings *string
	ChartPreSummary      *string
}

// Merge applies p onto s in place, following the append-concatenate /
// scalar-overwrite rule of spec §4.E. A node never observes a
// partially-merged update: Merge is the sole mutation path and is called
// once per node evaluation, atomically, by the runtime.
func (s *TurnState) Merge(p Partial) {
	if p.Intent != nil {
		s.Intent = *p.Intent
	}
	if p.TaskSummary != nil {
		s.TaskSummary = *p.TaskSummary
	}
	if p.SuggestedTool != nil {
		s.SuggestedTool = *p.SuggestedTool
	}
	if p.CurrentTool != nil {
		s.CurrentTool = *p.CurrentTool
	}
	if p.CurrentArgs != nil {
		s.CurrentArgs = p.CurrentArgs
	}
	if len(p.AppendToolResults) > 0 {
		s.ToolResults = append(s.ToolResults, p.AppendToolResults...)
	}
	if p.IncrementStep {
		s.StepCount++
	}
	if p.ResultQuality != nil {
		s.ResultQuality = *p.ResultQuality
	}
	if p.ResultSummary != nil {
		s.ResultSummary = *p.ResultSummary
	}
	if p.ErrorStrategy != nil {
		s.ErrorStrategy = *p.ErrorStrategy
	}
	if len(p.AppendErrorMessages) > 0 {
		s.ErrorMessages = append(s.ErrorMessages, p.AppendErrorMessages...)
	}
	if p.ClarificationRequest != nil {
		s.ClarificationRequest = *p.ClarificationRequest
	}
	if p.FinalResponse != nil {
		s.FinalResponse = *p.FinalResponse
	}
	if p.ModelThinking != nil {
		s.ModelThinking = *p.ModelThinking
	}
	if p.Entities != nil {
		s.Entities = *p.Entities
	}
	if p.CarriedImageFindings != nil {
		s.CarriedImageFindings = *p.CarriedImageFindings
	}
	if p.ChartPreSummary != nil {
		s.ChartPreSummary = *p.ChartPreSummary
	}
}

// subNeedCount approximates the number of sub-needs identified in the
// task summary for the "done?" heuristic: one per action verb found
// during input assembly, with a floor of 1 so a single-need turn still
// terminates after its first successful result.
func (s *TurnState) subNeedCount() int {
	if n := len(s.Entities.ActionVerbs); n > 1 {
		return n
	}
	return 1
}

// ToolLoopDone is the centralized "done?" predicate from spec §4.F's
// routing table, called once from the graph's conditional edge after
// result_classify rather than duplicated across node bodies (Open
// Question 1, resolved in DESIGN.md). It reports whether the tool loop
// should terminate and route to synthesize: either the accumulated
// results are judged to answer every identified sub-need
// (step_count >= sub-need count), or the hard ceiling has been reached.
func (s *TurnState) ToolLoopDone(maxIterations int) bool {
	if s.StepCount >= maxIterations {
		return true
	}
	return s.StepCount >= s.subNeedCount()
}
