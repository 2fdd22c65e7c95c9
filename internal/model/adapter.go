// Package model defines the Model Adapter: the narrow capability the graph
// nodes use to talk to the underlying language model, and nothing else.
// Grounded in the teacher's internal/agent.LLMProvider duck-typed
// "model-or-remote-model" interface (spec §9's "duck-typed model-or-remote
// protocol" design note resolves this as a narrow capability set).
package model

import "context"

// Message is one turn of conversation fed to the adapter. Role is one of
// "system", "user", "assistant" per spec §4.A.
type Message struct {
	Role    string
	Content string
}

// TextRequest is the input to GenerateText.
type TextRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
	// Prefix, if non-empty, pre-fills the start of the assistant turn
	// (an assistant-turn prefix the adapter must honor verbatim).
	Prefix string
}

// Field describes one named field of a schema-constrained generation
// request: a closed set of named fields with primitive types, optional
// nullable, and optional enum restriction (spec §4.A).
type Field struct {
	Name     string
	Type     string // "string", "bool", "int", "float"
	Nullable bool
	Enum     []string
}

// Schema is the declared shape a StructuredRequest must conform to.
type Schema struct {
	Fields []Field
}

// StructuredRequest is the input to GenerateStructured.
type StructuredRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
	Schema      Schema
}

// Adapter is the Model Adapter contract: exactly two operations, both of
// which MUST treat temperature 0 as deterministic greedy decoding and
// MUST preserve any in-band <open>...<close> thinking span in the raw
// text returned (spec §4.A, §6.5).
type Adapter interface {
	// GenerateText produces free-form text. Transport failures propagate
	// to the caller (spec §7's model-adapter propagation policy: raise
	// once, the runtime converts to a terminal error event).
	GenerateText(ctx context.Context, req TextRequest) (string, error)

	// GenerateStructured produces a value conforming exactly to
	// req.Schema, returned as a map of field name to decoded value. A
	// non-conforming response is rejected with ErrSchemaViolation rather
	// than returned partially.
	GenerateStructured(ctx context.Context, req StructuredRequest) (map[string]any, error)
}
