package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/galinilin/docgemma-connect/internal/events"
	"github.com/galinilin/docgemma-connect/internal/graph"
	"github.com/galinilin/docgemma-connect/internal/tools"
)

// ToolExecute returns the F.4 node. The interrupt-before boundary ahead
// of this node (configured in Build via graph.InterruptBefore) has
// already been honored by the runtime before this function runs: by the
// time it executes, either approval gating was disabled, current_tool
// was "none", or the caller resumed after an approval decision. This
// node invokes the Registry, times it, emits
// tool_execution_start/tool_execution_end, appends one tool-result
// record, and increments the step counter (spec §4.F.4).
func ToolExecute(deps Deps) func(context.Context, *graph.TurnState, *events.Emitter) (graph.Partial, error) {
	return func(ctx context.Context, s *graph.TurnState, emitter *events.Emitter) (graph.Partial, error) {
		toolName := s.CurrentTool
		args := s.CurrentArgs

		emitter.ToolExecutionStart(ctx, toolName, args)
		startedAt := time.Now()
		result := deps.Registry.Execute(ctx, toolName, args)
		duration := time.Since(startedAt)

		tr := graph.ToolResult{
			ToolName: toolName,
			Label:    toolLabel(deps, toolName),
			Args:     args,
			Success:  !result.IsError(),
		}
		if result.IsError() {
			tr.ErrorKind = result.Err.Kind
			tr.ErrorMessage = result.Err.Message
			tr.Formatted = fmt.Sprintf("%s failed: %s", tr.Label, result.Err.Message)
		} else {
			tr.Raw = result.Value
			if f, ok := result.Value.(tools.Formatter); ok {
				tr.Formatted = f.Formatted()
			} else {
				tr.Formatted = fmt.Sprintf("%s: %v", tr.Label, result.Value)
			}
		}

		emitter.ToolExecutionEnd(ctx, toolName, tr.Success, result.Value, duration)

		return graph.Partial{
			AppendToolResults: []graph.ToolResult{tr},
			IncrementStep:     true,
		}, nil
	}
}

func toolLabel(deps Deps, name string) string {
	if name == tools.NoneTool {
		return "no tool"
	}
	if def, ok := deps.Registry.Lookup(name); ok {
		return def.Description
	}
	return name
}
