package nodes

import (
	"fmt"

	"context"

	"github.com/galinilin/docgemma-connect/internal/events"
	"github.com/galinilin/docgemma-connect/internal/graph"
)

// maxRetrySameCount bounds the retry_same strategy (spec §7 category 1:
// "up to a bounded count (e.g. 2)").
const maxRetrySameCount = 2

// ErrorHandler returns the F.6 node: entered only when the last result
// classification is an error_* kind. It never calls the model; the
// strategy follows a deterministic table keyed by error category and
// step-count state (spec §4.F.6).
func ErrorHandler(_ Deps) func(context.Context, *graph.TurnState, *events.Emitter) (graph.Partial, error) {
	return func(_ context.Context, s *graph.TurnState, _ *events.Emitter) (graph.Partial, error) {
		last := graph.ToolResult{}
		if len(s.ToolResults) > 0 {
			last = s.ToolResults[len(s.ToolResults)-1]
		}

		retriesSoFar := countRetries(s, last.ToolName)

		var strategy graph.ErrorStrategy
		var message string
		var clarification string

		switch {
		case s.ResultQuality == graph.QualityErrorRetryable && retriesSoFar < maxRetrySameCount:
			strategy = graph.StrategyRetrySame
			message = fmt.Sprintf("The %s lookup is currently unavailable; retrying.", toolDisplayName(last.ToolName))
		case s.ResultQuality == graph.QualityErrorRetryable:
			strategy = graph.StrategyAskUser
			message = fmt.Sprintf("The %s lookup is currently unavailable; please retry shortly.", toolDisplayName(last.ToolName))
			clarification = message
		case s.ResultQuality == graph.QualitySuccessPartial:
			// Validation-category ambiguity (e.g. a patient name match
			// with several candidates): the tool succeeded, but its
			// formatted result is itself the disambiguation the
			// clinician needs to resolve (spec §7 category 2, scenario
			// E).
			strategy = graph.StrategyAskUser
			message = fmt.Sprintf("The %s lookup returned more than one match and needs clarification:\n%s", toolDisplayName(last.ToolName), last.Formatted)
			clarification = message
		default: // error_fatal: validation/argument failure, e.g. ambiguous identifier
			strategy = graph.StrategyAskUser
			message = fmt.Sprintf("I need more information to complete the %s request: %s", toolDisplayName(last.ToolName), last.ErrorMessage)
			clarification = message
		}

		p := graph.Partial{
			ErrorStrategy:       &strategy,
			AppendErrorMessages: []string{message},
		}
		if clarification != "" {
			p.ClarificationRequest = &clarification
		}
		return p, nil
	}
}

func countRetries(s *graph.TurnState, toolName string) int {
	count := 0
	for _, r := range s.ToolResults {
		if r.ToolName == toolName && !r.Success {
			count++
		}
	}
	if count > 0 {
		count-- // the most recent failure itself doesn't count as a prior retry
	}
	return count
}

func toolDisplayName(name string) string {
	if name == "" {
		return "requested"
	}
	return name
}
