package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why a Model Adapter call failed, adapted from the
// teacher's providers.FailoverReason string-content classification
// pattern, narrowed to the two adapter-level failure modes spec §7
// actually calls out: transport-transient and schema-violation.
type ErrorKind string

const (
	ErrorKindTransportTransient ErrorKind = "transport_transient"
	ErrorKindSchemaViolation    ErrorKind = "schema_violation"
	ErrorKindUnknown            ErrorKind = "unknown"
)

// IsRetryable mirrors spec §7's transport-transient category: these are
// the only adapter errors the error_handler node should consider for
// retry_same.
func (k ErrorKind) IsRetryable() bool {
	return k == ErrorKindTransportTransient
}

// AdapterError is raised once across the Model Adapter boundary per
// spec §7's propagation policy for model-adapter failures; the Graph
// Runtime converts it into a terminal error event.
type AdapterError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *AdapterError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Cause.Error())
	}
	return string(e.Kind)
}

func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// ErrSchemaViolation wraps cause as a schema_violation AdapterError:
// GenerateStructured produced output that does not conform to the
// declared schema (spec §4.A, boundary behavior in §8).
func ErrSchemaViolation(cause error) error {
	return &AdapterError{Kind: ErrorKindSchemaViolation, Message: "generated output did not conform to the declared schema", Cause: cause}
}

// ClassifyTransportError inspects a raw transport error (timeouts, 5xx,
// connection resets) and wraps it as the appropriate AdapterError.
func ClassifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr
	}

	msg := strings.ToLower(err.Error())
	kind := ErrorKindUnknown
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "connection reset"), strings.Contains(msg, "econnreset"),
		strings.Contains(msg, "500"), strings.Contains(msg, "502"),
		strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		kind = ErrorKindTransportTransient
	}

	return &AdapterError{Kind: kind, Message: err.Error(), Cause: err}
}

// IsRetryable reports whether err, classified, should be retried by the
// error_handler node's retry_same strategy.
func IsRetryable(err error) bool {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Kind.IsRetryable()
	}
	return false
}
