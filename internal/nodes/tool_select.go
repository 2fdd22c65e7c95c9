package nodes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/galinilin/docgemma-connect/internal/events"
	"github.com/galinilin/docgemma-connect/internal/graph"
	"github.com/galinilin/docgemma-connect/internal/model"
	"github.com/galinilin/docgemma-connect/internal/tools"
)

// criticalArgs lists argument names promoted ahead of the rest in the
// tool_select schema's critical-first ordering (spec §4.F.3: "patient
// identifier fields before other fields").
var criticalArgs = []string{"patient_id", "patient_name"}

// ToolSelect returns the F.3 node: model-backed, schema-constrained,
// temperature 0. Writes current_tool and current_args (nulls filtered)
// into the state.
func ToolSelect(deps Deps) func(context.Context, *graph.TurnState, *events.Emitter) (graph.Partial, error) {
	return func(ctx context.Context, s *graph.TurnState, _ *events.Emitter) (graph.Partial, error) {
		schema := toolSelectSchema(deps.Registry)

		req := model.StructuredRequest{
			Messages:    toolSelectMessages(deps, s),
			MaxTokens:   256,
			Temperature: 0,
			Schema:      schema,
		}
		out, err := deps.Adapter.GenerateStructured(ctx, req)
		if err != nil {
			return graph.Partial{}, err
		}

		toolName := asString(out["tool_name"])
		if toolName == "" {
			toolName = tools.NoneTool
		}

		args := make(map[string]any)
		for _, f := range schema.Fields {
			if f.Name == "tool_name" {
				continue
			}
			if v, ok := out[f.Name]; ok && v != nil {
				args[f.Name] = v
			}
		}

		return graph.Partial{CurrentTool: &toolName, CurrentArgs: args}, nil
	}
}

func toolSelectSchema(r *tools.Registry) model.Schema {
	names := append([]string{}, r.Names()...)
	names = append(names, tools.NoneTool)

	fields := []model.Field{
		{Name: "tool_name", Type: "string", Enum: names},
	}

	seen := make(map[string]struct{})
	var ordered []string
	for _, critical := range criticalArgs {
		ordered = append(ordered, critical)
		seen[critical] = struct{}{}
	}

	var rest []string
	for _, name := range r.Names() {
		def, ok := r.Lookup(name)
		if !ok {
			continue
		}
		for _, arg := range def.ArgOrder {
			if _, ok := seen[arg]; ok {
				continue
			}
			seen[arg] = struct{}{}
			rest = append(rest, arg)
		}
	}
	sort.Strings(rest)
	ordered = append(ordered, rest...)

	for _, arg := range ordered {
		fields = append(fields, model.Field{Name: arg, Type: "string", Nullable: true})
	}
	return model.Schema{Fields: fields}
}

func toolSelectMessages(deps Deps, s *graph.TurnState) []model.Message {
	var sb strings.Builder
	sb.WriteString("Select at most one tool to make progress on the task below, or \"none\" if no tool is needed.\n")
	fmt.Fprintf(&sb, "Task: %s\n", s.TaskSummary)
	if s.SuggestedTool != "" {
		fmt.Fprintf(&sb, "Suggested tool (non-binding): %s\n", s.SuggestedTool)
	}
	sb.WriteString("Available tools:\n")
	sb.WriteString(deps.Registry.PromptListing())
	if len(s.ToolResults) > 0 {
		sb.WriteString("Results so far:\n")
		for _, r := range s.ToolResults {
			fmt.Fprintf(&sb, "- %s: %s\n", r.ToolName, r.Formatted)
		}
	}
	return []model.Message{
		{Role: "system", Content: "You are a clinical tool-selection planner."},
		{Role: "user", Content: sb.String()},
	}
}
