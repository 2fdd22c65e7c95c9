// Package nodes implements the seven Graph Runtime node bodies of spec
// §4.F, grounded in original_source/src/docgemma/agent/nodes.py's
// node-per-function shape (that file's own logic is a thin, partially
// stubbed sketch; the node contracts implemented here follow spec.md
// directly, which is the fuller and more authoritative description of
// this system's node behavior).
package nodes

import (
	"github.com/galinilin/docgemma-connect/internal/graph"
	"github.com/galinilin/docgemma-connect/internal/model"
	"github.com/galinilin/docgemma-connect/internal/tools"
)

// Deps are the shared collaborators every node needs: the Model Adapter
// for model-backed nodes and the Tool Registry for tool_execute.
type Deps struct {
	Adapter  model.Adapter
	Registry *tools.Registry
	// MaxToolIterations mirrors graph.Config.MaxToolIterations so
	// tool_select can cap retries and result_classify's routing can
	// consult the same ceiling used by TurnState.ToolLoopDone.
	MaxToolIterations int
}

// IDs for the seven nodes, used both as graph.NodeID values and as the
// node_start/node_end NodeID payload.
const (
	NodeInputAssembly  graph.NodeID = "input_assembly"
	NodeIntentClassify graph.NodeID = "intent_classify"
	NodeToolSelect     graph.NodeID = "tool_select"
	NodeToolExecute    graph.NodeID = "tool_execute"
	NodeResultClassify graph.NodeID = "result_classify"
	NodeErrorHandler   graph.NodeID = "error_handler"
	NodeSynthesize     graph.NodeID = "synthesize"
)

// Build assembles the full graph per spec §4.F's routing table:
//
//	entry -> input_assembly -> intent_classify
//	                           |- direct      -> synthesize -> END
//	                           `- tool_needed -> tool_select
//	tool_select -> (interrupt-before) -> tool_execute -> result_classify
//	result_classify -> success_*/no_results
//	                       done? yes -> synthesize -> END
//	                             no  -> tool_select (reactive loop)
//	result_classify -> error_*
//	                       -> error_handler
//	                              |- retry_*            -> tool_select
//	                              |- skip_and_continue   -> synthesize -> END
//	                              `- ask_user            -> synthesize -> END
func Build(cfg graph.Config, deps Deps) *graph.Graph {
	g := graph.New(cfg)

	g.AddNode(NodeInputAssembly, "Input assembly", InputAssembly(deps), NodeIntentClassify)

	g.AddConditionalNode(NodeIntentClassify, "Intent classify", IntentClassify(deps), func(s *graph.TurnState) graph.NodeID {
		if s.Intent == graph.IntentToolNeeded {
			return NodeToolSelect
		}
		return NodeSynthesize
	})

	g.AddNode(NodeToolSelect, "Tool select", ToolSelect(deps), NodeToolExecute)

	g.AddNode(NodeToolExecute, "Tool execute", ToolExecute(deps), NodeResultClassify)

	g.AddConditionalNode(NodeResultClassify, "Result classify", ResultClassify(deps), func(s *graph.TurnState) graph.NodeID {
		// success_partial (e.g. an ambiguous patient match) is a
		// validation-category outcome, not a loop-continuation one: it
		// routes to error_handler the same as error_fatal so the
		// handler can choose ask_user and produce a clarification
		// (spec §7 category 2, scenario E).
		if s.ResultQuality.IsError() || s.ResultQuality == graph.QualitySuccessPartial {
			return NodeErrorHandler
		}
		if s.ToolLoopDone(g.MaxToolIterations()) {
			return NodeSynthesize
		}
		return NodeToolSelect
	})

	g.AddConditionalNode(NodeErrorHandler, "Error handler", ErrorHandler(deps), func(s *graph.TurnState) graph.NodeID {
		switch s.ErrorStrategy {
		case graph.StrategyRetrySame, graph.StrategyRetryDifferentArgs:
			return NodeToolSelect
		default:
			return NodeSynthesize
		}
	})

	g.AddNode(NodeSynthesize, "Synthesize", Synthesize(deps), graph.End)

	g.SetEntry(NodeInputAssembly)
	g.InterruptBefore(string(NodeToolExecute))

	return g
}
