package nodes

import (
	"context"
	"fmt"

	"github.com/galinilin/docgemma-connect/internal/events"
	"github.com/galinilin/docgemma-connect/internal/graph"
	"github.com/galinilin/docgemma-connect/internal/model"
)

var resultQualityEnum = []string{
	string(graph.QualitySuccessRich),
	string(graph.QualitySuccessPartial),
	string(graph.QualityNoResults),
	string(graph.QualityErrorRetryable),
	string(graph.QualityErrorFatal),
}

var resultQualitySchema = model.Schema{
	Fields: []model.Field{
		{Name: "quality", Type: "string", Enum: resultQualityEnum},
		{Name: "reasoning", Type: "string"},
	},
}

// ResultClassify returns the F.5 node: model-backed, schema-constrained,
// temperature 0. A tool_execute failure is classified deterministically
// from the result's error kind without consulting the model, since the
// failure category is already known precisely; the model is only
// consulted to judge the richness of a successful or empty result.
func ResultClassify(deps Deps) func(context.Context, *graph.TurnState, *events.Emitter) (graph.Partial, error) {
	return func(ctx context.Context, s *graph.TurnState, _ *events.Emitter) (graph.Partial, error) {
		if len(s.ToolResults) == 0 {
			quality := graph.QualityNoResults
			summary := "no tool result to classify"
			return graph.Partial{ResultQuality: &quality, ResultSummary: &summary}, nil
		}
		last := s.ToolResults[len(s.ToolResults)-1]

		if !last.Success {
			quality := graph.QualityErrorFatal
			if last.ErrorKind.IsRetryable() {
				quality = graph.QualityErrorRetryable
			}
			summary := fmt.Sprintf("%s: %s", last.ErrorKind, last.ErrorMessage)
			return graph.Partial{ResultQuality: &quality, ResultSummary: &summary}, nil
		}

		req := model.StructuredRequest{
			Messages:    resultClassifyMessages(last),
			MaxTokens:   128,
			Temperature: 0,
			Schema:      resultQualitySchema,
		}
		out, err := deps.Adapter.GenerateStructured(ctx, req)
		if err != nil {
			return graph.Partial{}, err
		}

		quality := graph.ResultQuality(asString(out["quality"]))
		valid := false
		for _, q := range resultQualityEnum {
			if string(quality) == q {
				valid = true
				break
			}
		}
		if !valid {
			quality = graph.QualitySuccessPartial
		}
		summary := asString(out["reasoning"])
		return graph.Partial{ResultQuality: &quality, ResultSummary: &summary}, nil
	}
}

func resultClassifyMessages(last graph.ToolResult) []model.Message {
	prompt := fmt.Sprintf(
		"Classify the quality of this tool result.\nTool: %s\nResult: %v\n"+
			"Choose success_rich if it fully answers the need, success_partial if "+
			"it partially answers or is ambiguous (e.g. multiple matching records), "+
			"no_results if the tool found nothing.",
		last.ToolName, last.Raw,
	)
	return []model.Message{
		{Role: "system", Content: "You are a clinical tool-result quality classifier."},
		{Role: "user", Content: prompt},
	}
}
