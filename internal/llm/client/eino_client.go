package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	defaultOpenAIModel = "gpt-4.1-mini"
	defaultClaudeModel = "claude-sonnet-4-5"
	defaultMaxTokens   = 8192
)

// EinoClient drives any eino chat model that accepts image parts. The response
// schema is stated in the prompt since these providers do not get a native
// schema here; the caller validates the result either way.
type EinoClient struct {
	chat        model.BaseChatModel
	name        string
	temperature float32
}

func NewEinoClient(chat model.BaseChatModel, name string, temperature float32) *EinoClient {
	return &EinoClient{chat: chat, name: name, temperature: temperature}
}

func NewOpenAIVisionClient(ctx context.Context, apiKey string, opts Options) (*EinoClient, error) {
	name := strings.TrimSpace(opts.Model)
	if name == "" {
		name = defaultOpenAIModel
	}
	chat, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey: apiKey,
		Model:  name,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}
	return NewEinoClient(chat, "openai:"+name, opts.Temperature), nil
}

func NewClaudeVisionClient(ctx context.Context, apiKey string, opts Options) (*EinoClient, error) {
	name := strings.TrimSpace(opts.Model)
	if name == "" {
		name = defaultClaudeModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	chat, err := claude.NewChatModel(ctx, &claude.Config{
		APIKey:    apiKey,
		Model:     name,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create claude chat model: %w", err)
	}
	return NewEinoClient(chat, "anthropic:"+name, opts.Temperature), nil
}

func (e *EinoClient) Name() string {
	return e.name
}

func (e *EinoClient) GenerateJSON(ctx context.Context, req VisionRequest) (string, error) {
	messages, err := buildEinoMessages(req)
	if err != nil {
		return "", err
	}
	var opts []model.Option
	if e.temperature > 0 {
		opts = append(opts, model.WithTemperature(e.temperature))
	}
	out, err := e.chat.Generate(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", e.name, err)
	}
	if out == nil {
		return "", nil
	}
	return out.Content, nil
}

func buildEinoMessages(req VisionRequest) ([]*schema.Message, error) {
	system := strings.TrimSpace(req.SystemInstruction)
	if req.Schema != nil {
		raw, err := json.Marshal(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("encode response schema: %w", err)
		}
		system += "\n\nRespond with a single JSON object that validates against this JSON schema:\n" + string(raw)
	}

	parts := make([]schema.ChatMessagePart, 0, len(req.Images)+1)
	parts = append(parts, schema.ChatMessagePart{
		Type: schema.ChatMessagePartTypeText,
		Text: req.Prompt,
	})
	for _, img := range req.Images {
		parts = append(parts, schema.ChatMessagePart{
			Type: schema.ChatMessagePartTypeImageURL,
			ImageURL: &schema.ChatMessageImageURL{
				URL:      img.DataURL(),
				MIMEType: img.MIMEType,
				Detail:   schema.ImageURLDetailHigh,
			},
		})
	}

	messages := make([]*schema.Message, 0, 2)
	if system != "" {
		messages = append(messages, schema.SystemMessage(system))
	}
	messages = append(messages, &schema.Message{
		Role:         schema.User,
		MultiContent: parts,
	})
	return messages, nil
}
