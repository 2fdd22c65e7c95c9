package model

import (
	"context"
	"fmt"
	"sync"
)

// FakeAdapter is a deterministic, in-process substitute for a real LM,
// used by tests to exercise spec §8's scenarios without a network call.
// Responses are queued and consumed in order; a response queue that runs
// dry causes the next call to return ErrExhausted, surfacing test bugs
// loudly instead of silently looping, grounded in the teacher's pattern
// of provider test doubles (providers/anthropic_test.go) adapted to this
// adapter's two-operation contract.
type FakeAdapter struct {
	mu        sync.Mutex
	texts     []string
	textErrs  []error
	structured []map[string]any
	structErrs []error
}

// NewFakeAdapter returns an empty FakeAdapter; queue responses with
// QueueText / QueueStructured before use.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{}
}

// QueueText appends a GenerateText response to the queue.
func (f *FakeAdapter) QueueText(text string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.textErrs = append(f.textErrs, err)
}

// QueueStructured appends a GenerateStructured response to the queue.
func (f *FakeAdapter) QueueStructured(value map[string]any, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.structured = append(f.structured, value)
	f.structErrs = append(f.structErrs, err)
}

func (f *FakeAdapter) GenerateText(_ context.Context, _ TextRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return "", fmt.Errorf("model: fake adapter text queue exhausted")
	}
	text, err := f.texts[0], f.textErrs[0]
	f.texts, f.textErrs = f.texts[1:], f.textErrs[1:]
	return text, err
}

func (f *FakeAdapter) GenerateStructured(_ context.Context, _ StructuredRequest) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.structured) == 0 {
		return nil, fmt.Errorf("model: fake adapter structured queue exhausted")
	}
	value, err := f.structured[0], f.structErrs[0]
	f.structured, f.structErrs = f.structured[1:], f.structErrs[1:]
	return value, err
}

var _ Adapter = (*FakeAdapter)(nil)
