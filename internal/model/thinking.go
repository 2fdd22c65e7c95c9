package model

import "strings"

// thinkingOpen and thinkingClose delimit an in-band thinking span the LM
// may emit ahead of its visible content (spec §6.5). The spec generalizes
// the underlying model's literal marker tokens to <open>/<close>; the
// adapter must preserve the raw text verbatim and let callers split it.
const (
	thinkingOpen  = "<open>"
	thinkingClose = "<close>"
)

// SplitThinking separates a leading thinking span from the visible
// content of raw LM output. <close> is often absent (the model may be
// cut off mid-thought by a max-token budget); in that case the entire
// remainder after <open> is treated as thinking and visible content is
// empty.
func SplitThinking(raw string) (thinking, visible string) {
	start := strings.Index(raw, thinkingOpen)
	if start == -1 {
		return "", raw
	}
	afterOpen := raw[start+len(thinkingOpen):]
	end := strings.Index(afterOpen, thinkingClose)
	if end == -1 {
		return strings.TrimSpace(afterOpen), ""
	}
	thinking = strings.TrimSpace(afterOpen[:end])
	visible = strings.TrimSpace(raw[:start] + afterOpen[end+len(thinkingClose):])
	return thinking, visible
}
