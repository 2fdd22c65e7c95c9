// Package tools implements the Tool Registry: a uniform dispatch over
// heterogeneous async tools that never raises across its boundary,
// grounded in original_source/src/docgemma/tools/registry.py's
// ToolRegistry and the teacher's internal/agent/tool_exec.go concurrency
// and timeout model.
package tools

import "encoding/json"

// ErrorKind classifies a tool-executor failure (spec §7's taxonomy,
// narrowed to what a tool executor itself can observe).
type ErrorKind string

const (
	ErrorKindNotFound  ErrorKind = "not_found"
	ErrorKindInvalid   ErrorKind = "invalid_input"
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindNetwork   ErrorKind = "network"
	ErrorKindExecution ErrorKind = "execution"
)

// IsRetryable reports whether the error_handler node's retry_same
// strategy should consider this kind (spec §7 category 1).
func (k ErrorKind) IsRetryable() bool {
	switch k {
	case ErrorKindTimeout, ErrorKindNetwork:
		return true
	default:
		return false
	}
}

// Result is the sum type `Ok(value) | Err(kind, message)` spec §9 asks
// executors to return instead of raising (modeling the source's
// TypeError-catching exception boundary as a typed result).
type Result struct {
	Value any
	Err   *Error
}

// Error is the failure branch of Result.
type Error struct {
	Kind    ErrorKind
	Message string
}

// Ok constructs a successful Result.
func Ok(value any) Result {
	return Result{Value: value}
}

// Err constructs a failed Result.
func Err(kind ErrorKind, message string) Result {
	return Result{Err: &Error{Kind: kind, Message: message}}
}

// IsError reports whether r represents a failure.
func (r Result) IsError() bool {
	return r.Err != nil
}

// Formatter is implemented by a tool's success value to render itself as
// the clinician-friendly string spec §3 requires synthesize (and the
// clinical trace) to consume, mirroring the per-tool formatted_result
// field of original_source's AgentState.
type Formatter interface {
	Formatted() string
}

// MarshalJSON renders r as the external tool-call shape (spec §6.3): a
// success value is returned as-is, a failure is `{"error": "..."}`.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(map[string]string{"error": r.Err.Message})
	}
	return json.Marshal(r.Value)
}
