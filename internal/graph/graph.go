package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/galinilin/docgemma-connect/internal/events"
)

// NodeID names one of the graph's nodes.
type NodeID string

// NodeFunc is a pure function from the current state to a partial update
// (spec §4.E: "each node is a pure function from a state value to a
// partial state update"). The emitter is threaded through so nodes that
// emit their own sub-events (tool_execute's start/end pair,
// synthesize's optional streaming_text) can do so; node_start/node_end
// around the call are always emitted by the runtime itself, never the
// node.
type NodeFunc func(ctx context.Context, s *TurnState, emitter *events.Emitter) (Partial, error)

// EdgeFunc is a conditional edge: a predicate from state to a successor
// node name. A nil EdgeFunc paired with a non-empty Static target means
// an unconditional edge.
type EdgeFunc func(s *TurnState) NodeID

// End is the sentinel successor meaning the graph terminates this turn.
const End NodeID = ""

// node is one registered node plus its outgoing routing.
type node struct {
	id    NodeID
	label string
	fn    NodeFunc
	// Static is the unconditional successor, used when Cond is nil.
	static NodeID
	// Cond, if non-nil, computes the successor from state instead of
	// using Static.
	cond EdgeFunc
}

// Config tunes the Graph Runtime.
type Config struct {
	// MaxToolIterations is the hard ceiling on tool-loop iterations
	// (spec §4.F "Hard ceiling"), resolved as a configurable value
	// defaulting to 5.
	MaxToolIterations int

	// ApprovalGating, when true, causes the interrupt-before boundary
	// ahead of tool_execute to pause and emit tool_approval_request
	// whenever current_tool is not the "none" sentinel (spec §4.F.4).
	ApprovalGating bool
}

// DefaultConfig returns the spec's default tuning.
func DefaultConfig() Config {
	return Config{MaxToolIterations: 5, ApprovalGating: true}
}

// Checkpoint is a snapshot of turn state taken at an interrupt-before
// boundary, keyed by an opaque id the Agent Runner hands back on resume
// (spec §9 glossary, "Checkpoint"). Checkpoints are in-memory only: they
// never survive a process restart (spec §4.C, §9).
type Checkpoint struct {
	ID        string
	SessionID string
	State     *TurnState
	// PausedAt is the node the graph will resume into once the patch
	// (if any) is applied.
	PausedAt NodeID
}

// Graph is a declarative graph of named nodes and edges over TurnState,
// with interrupt-before boundaries and checkpoint/resume (spec §4.E).
type Graph struct {
	cfg   Config
	nodes map[NodeID]*node
	entry NodeID
	// interruptPrefixes holds node-id prefixes configured as
	// interrupt-before boundaries.
	interruptPrefixes []string
	// checkpoints is the in-memory, per-session checkpoint store.
	checkpoints map[string]*Checkpoint
}

// New constructs an empty Graph with cfg's tuning.
func New(cfg Config) *Graph {
	return &Graph{
		cfg:         cfg,
		nodes:       make(map[NodeID]*node),
		checkpoints: make(map[string]*Checkpoint),
	}
}

// AddNode registers a node with a static (unconditional) successor.
// Pass End as the successor to terminate the turn after this node.
func (g *Graph) AddNode(id NodeID, label string, fn NodeFunc, next NodeID) {
	g.nodes[id] = &node{id: id, label: label, fn: fn, static: next}
}

// AddConditionalNode registers a node whose successor is computed by
// cond from the post-merge state.
func (g *Graph) AddConditionalNode(id NodeID, label string, fn NodeFunc, cond EdgeFunc) {
	g.nodes[id] = &node{id: id, label: label, fn: fn, cond: cond}
}

// SetEntry designates the graph's single entry node.
func (g *Graph) SetEntry(id NodeID) { g.entry = id }

// InterruptBefore configures a node-id prefix as an interrupt-before
// boundary: whenever the next node to run has this prefix and approval
// gating is enabled, the runtime pauses ahead of it.
func (g *Graph) InterruptBefore(prefix string) {
	g.interruptPrefixes = append(g.interruptPrefixes, prefix)
}

func (g *Graph) isInterruptBoundary(next NodeID) bool {
	if !g.cfg.ApprovalGating {
		return false
	}
	for _, p := range g.interruptPrefixes {
		if strings.HasPrefix(string(next), p) {
			return true
		}
	}
	return false
}

// PauseSignal is returned by Run when execution paused at an
// interrupt-before boundary rather than reaching a terminal node.
type PauseSignal struct {
	Checkpoint *Checkpoint
}

// Run executes the graph from its entry node (or, if resuming, the
// caller should instead call Resume) until it reaches a terminal node or
// an interrupt-before boundary. It emits node_start/node_end around each
// node evaluation (invariant I4: no node_start(Y) appears between a
// node's node_start and its own node_end).
//
// If a node's NodeFunc returns an error, the runtime converts it to a
// terminal error event and returns that error without merging any
// partial state into s (spec §4.E's "no partial state leaks").
func (g *Graph) Run(ctx context.Context, sessionID string, s *TurnState, emitter *events.Emitter) (*PauseSignal, error) {
	return g.run(ctx, sessionID, s, g.entry, emitter)
}

// Resume continues execution from cp.PausedAt. Callers that need to
// patch the paused state first (the Agent Runner's tool-rejection path)
// mutate cp.State and cp.PausedAt directly before calling Resume; both
// fields are exported for exactly that purpose. cp is consumed: the
// runtime forgets it regardless of outcome, mirroring the source's
// one-shot checkpoint semantics.
func (g *Graph) Resume(ctx context.Context, cp *Checkpoint, emitter *events.Emitter) (*PauseSignal, error) {
	delete(g.checkpoints, cp.ID)
	return g.run(ctx, cp.SessionID, cp.State, cp.PausedAt, emitter)
}

func (g *Graph) run(ctx context.Context, sessionID string, s *TurnState, start NodeID, emitter *events.Emitter) (*PauseSignal, error) {
	current := start
	for current != End {
		n, ok := g.nodes[current]
		if !ok {
			return nil, fmt.Errorf("graph: unknown node %q", current)
		}

		emitter.NodeStart(ctx, string(n.id), n.label)
		startedAt := time.Now()
		partial, err := n.fn(ctx, s, emitter)
		duration := time.Since(startedAt)
		if err != nil {
			return nil, err
		}
		s.Merge(partial)
		emitter.NodeEnd(ctx, string(n.id), n.label, duration)

		next := n.static
		if n.cond != nil {
			next = n.cond(s)
		}

		if next != End && g.isInterruptBoundary(next) {
			cp := &Checkpoint{ID: uuid.NewString(), SessionID: sessionID, State: s, PausedAt: next}
			g.checkpoints[cp.ID] = cp
			return &PauseSignal{Checkpoint: cp}, nil
		}

		current = next
	}
	return nil, nil
}

// CheckpointFor returns the in-memory checkpoint registered under id, or
// nil if none exists (e.g. the process restarted, or it was already
// consumed by Resume).
func (g *Graph) CheckpointFor(id string) *Checkpoint {
	return g.checkpoints[id]
}

// DiscardCheckpoint forgets cp without resuming it, used on turn
// cancellation (spec §5 "Cancellation and timeouts").
func (g *Graph) DiscardCheckpoint(id string) {
	delete(g.checkpoints, id)
}

// MaxToolIterations exposes the configured hard ceiling for nodes that
// need it (tool_select, result_classify's done? predicate).
func (g *Graph) MaxToolIterations() int {
	if g.cfg.MaxToolIterations <= 0 {
		return DefaultConfig().MaxToolIterations
	}
	return g.cfg.MaxToolIterations
}
