package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/galinilin/docgemma-connect/internal/events"
	"github.com/galinilin/docgemma-connect/internal/graph"
	"github.com/galinilin/docgemma-connect/internal/model"
)

var intentSchema = model.Schema{
	Fields: []model.Field{
		{Name: "intent", Type: "string", Enum: []string{string(graph.IntentDirect), string(graph.IntentToolNeeded)}},
		{Name: "task_summary", Type: "string"},
		{Name: "suggested_tool", Type: "string", Nullable: true},
	},
}

// IntentClassify returns the F.2 node: model-backed, schema-constrained,
// temperature 0. If the turn's tool-calling-enabled flag is false,
// intent is forced to direct without calling the model.
func IntentClassify(deps Deps) func(context.Context, *graph.TurnState, *events.Emitter) (graph.Partial, error) {
	return func(ctx context.Context, s *graph.TurnState, _ *events.Emitter) (graph.Partial, error) {
		if !s.ToolCallingEnabled {
			direct := graph.IntentDirect
			summary := s.UserQuery
			return graph.Partial{Intent: &direct, TaskSummary: &summary}, nil
		}

		req := model.StructuredRequest{
			Messages:    intentMessages(s),
			MaxTokens:   256,
			Temperature: 0,
			Schema:      intentSchema,
		}
		out, err := deps.Adapter.GenerateStructured(ctx, req)
		if err != nil {
			return graph.Partial{}, err
		}

		intent := graph.Intent(asString(out["intent"]))
		if intent != graph.IntentDirect && intent != graph.IntentToolNeeded {
			intent = graph.IntentDirect
		}
		summary := asString(out["task_summary"])
		suggested := asString(out["suggested_tool"])

		return graph.Partial{Intent: &intent, TaskSummary: &summary, SuggestedTool: &suggested}, nil
	}
}

func intentMessages(s *graph.TurnState) []model.Message {
	var sb strings.Builder
	sb.WriteString("Classify whether the clinician's request needs a clinical tool or can be answered directly.\n")
	sb.WriteString(fmt.Sprintf("Request: %s\n", s.UserQuery))
	if len(s.Entities.DrugMentions) > 0 {
		sb.WriteString(fmt.Sprintf("Drug mentions: %s\n", strings.Join(s.Entities.DrugMentions, ", ")))
	}
	if len(s.Entities.PatientIdentifiers) > 0 {
		sb.WriteString(fmt.Sprintf("Patient identifiers: %s\n", strings.Join(s.Entities.PatientIdentifiers, ", ")))
	}
	msgs := []model.Message{{Role: "system", Content: "You are a clinical intent classifier."}}
	for _, h := range s.History {
		msgs = append(msgs, model.Message{Role: h.Role, Content: h.Content})
	}
	msgs = append(msgs, model.Message{Role: "user", Content: sb.String()})
	return msgs
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
