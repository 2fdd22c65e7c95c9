package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// AnthropicAdapter implements Adapter against Claude, grounded in the
// teacher's providers.AnthropicProvider client-construction and retry
// shape, narrowed from a streaming multi-tool chat provider down to the
// two blocking operations the Model Adapter contract requires.
type AnthropicAdapter struct {
	client  anthropic.Client
	model   string
	retrier retrier
}

// AnthropicConfig configures AnthropicAdapter.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxRetries   int
	RetryDelay   time.Duration
}

// NewAnthropicAdapter builds an adapter backed by the Anthropic API.
func NewAnthropicAdapter(cfg AnthropicConfig) (*AnthropicAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("model: anthropic api key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicAdapter{
		client:  anthropic.NewClient(opts...),
		model:   cfg.DefaultModel,
		retrier: newRetrier(cfg.MaxRetries, cfg.RetryDelay),
	}, nil
}

func toAnthropicMessages(msgs []Message) (system string, out []anthropic.MessageParam) {
	for _, m := range msgs {
		switch m.Role {
		case "system":
			system = m.Content
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return system, out
}

// GenerateText implements Adapter.
func (a *AnthropicAdapter) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	system, msgs := toAnthropicMessages(req.Messages)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	var text string
	err := a.retrier.retry(ctx, IsRetryable, func() error {
		params := anthropic.MessageNewParams{
			Model:       anthropic.Model(a.model),
			MaxTokens:   int64(maxTokens),
			Messages:    msgs,
			Temperature: anthropic.Float(req.Temperature),
		}
		if system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}

		msg, err := a.client.Messages.New(ctx, params)
		if err != nil {
			return ClassifyTransportError(err)
		}
		for _, block := range msg.Content {
			if block.Type == "text" {
				text += block.Text
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// GenerateStructured implements Adapter. It instructs the model to emit a
// single JSON object conforming to req.Schema and validates the response
// against a compiled jsonschema.Schema before returning it, rejecting any
// non-conforming output as ErrSchemaViolation (spec §4.A, §8).
func (a *AnthropicAdapter) GenerateStructured(ctx context.Context, req StructuredRequest) (map[string]any, error) {
	compiled, rawSchema, err := compileSchema(req.Schema)
	if err != nil {
		return nil, ErrSchemaViolation(err)
	}

	instruction := Message{
		Role:    "system",
		Content: "Respond with a single JSON object only, no prose, conforming to this schema: " + string(rawSchema),
	}
	textReq := TextRequest{
		Messages:    append([]Message{instruction}, req.Messages...),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	raw, err := a.GenerateText(ctx, textReq)
	if err != nil {
		return nil, err
	}

	_, visible := SplitThinking(raw)
	if visible == "" {
		visible = raw
	}

	var value map[string]any
	if err := json.Unmarshal([]byte(visible), &value); err != nil {
		return nil, ErrSchemaViolation(err)
	}
	if err := compiled.ValidateInterface(value); err != nil {
		return nil, ErrSchemaViolation(err)
	}
	return value, nil
}

// compileSchema converts the Model Adapter's closed field-set Schema into
// a JSON Schema document and compiles it with jsonschema/v5.
func compileSchema(s Schema) (*jsonschema.Schema, []byte, error) {
	properties := map[string]any{}
	var required []string
	for _, f := range s.Fields {
		prop := map[string]any{"type": jsonType(f)}
		if len(f.Enum) > 0 {
			prop["enum"] = f.Enum
		}
		properties[f.Name] = prop
		if !f.Nullable {
			required = append(required, f.Name)
		}
	}

	doc := map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, nil, err
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, nil, err
	}
	return compiled, raw, nil
}

func jsonType(f Field) any {
	base := f.Type
	switch f.Type {
	case "int":
		base = "integer"
	case "float":
		base = "number"
	case "bool":
		base = "boolean"
	case "":
		base = "string"
	}
	if f.Nullable {
		return []string{base, "null"}
	}
	return base
}
