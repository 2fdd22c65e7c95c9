package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/galinilin/docgemma-connect/internal/events"
	"github.com/galinilin/docgemma-connect/internal/graph"
	"github.com/galinilin/docgemma-connect/internal/model"
)

// synthesizeMaxTokens is the hard max-token budget spec §4.F.7 names.
const synthesizeMaxTokens = 256

// synthesizeSystemPrompt is the contract-with-the-prompt spec §4.F.7
// describes: not enforced by the runtime, verified by the test suite.
const synthesizeSystemPrompt = "You are a clinical assistant writing the final response to a clinician. " +
	"Never mention tool names, source APIs, function names, or any internal process vocabulary. " +
	"Write in plain clinical language only."

// Synthesize returns the F.7 node: model-backed, free-form (not
// schema-constrained), temperature 0.5. It produces the final response
// text from the conversation tail, the user query, accumulated tool
// results, error strings, carried reasoning, and image findings.
func Synthesize(deps Deps) func(context.Context, *graph.TurnState, *events.Emitter) (graph.Partial, error) {
	return func(ctx context.Context, s *graph.TurnState, _ *events.Emitter) (graph.Partial, error) {
		req := model.TextRequest{
			Messages:    synthesizeMessages(s),
			MaxTokens:   synthesizeMaxTokens,
			Temperature: 0.5,
		}
		raw, err := deps.Adapter.GenerateText(ctx, req)
		if err != nil {
			return graph.Partial{}, err
		}

		thinking, visible := model.SplitThinking(raw)
		p := graph.Partial{FinalResponse: &visible}
		if thinking != "" {
			p.ModelThinking = &thinking
		}
		return p, nil
	}
}

func synthesizeMessages(s *graph.TurnState) []model.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Clinician's request: %s\n", s.UserQuery)

	if len(s.ToolResults) > 0 {
		sb.WriteString("Findings:\n")
		for _, r := range s.ToolResults {
			if r.Success {
				fmt.Fprintf(&sb, "- %s\n", r.Formatted)
			}
		}
	}
	if len(s.ErrorMessages) > 0 {
		sb.WriteString("Issues encountered:\n")
		for _, e := range s.ErrorMessages {
			fmt.Fprintf(&sb, "- %s\n", e)
		}
	}
	if s.ClarificationRequest != "" {
		fmt.Fprintf(&sb, "Ask the clinician to clarify: %s\n", s.ClarificationRequest)
	}
	if s.CarriedImageFindings != "" {
		fmt.Fprintf(&sb, "Image findings: %s\n", s.CarriedImageFindings)
	}

	msgs := []model.Message{{Role: "system", Content: synthesizeSystemPrompt}}
	for _, h := range s.History {
		msgs = append(msgs, model.Message{Role: h.Role, Content: h.Content})
	}
	msgs = append(msgs, model.Message{Role: "user", Content: sb.String()})
	return msgs
}
