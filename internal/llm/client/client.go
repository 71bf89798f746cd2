package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Image is one resolved screen payload.
type Image struct {
	ScreenID string
	Data     []byte
	MIMEType string
}

// DataURL encodes the image as a base64 data URL.
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// VisionRequest is a single structured-output request against a vision model.
type VisionRequest struct {
	SystemInstruction string
	Prompt            string
	Images            []Image
	Schema            *genai.Schema
}

// VisionModel returns the raw JSON text produced for a request.
type VisionModel interface {
	GenerateJSON(ctx context.Context, req VisionRequest) (string, error)
	Name() string
}

// Options selects the concrete model behind a provider.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewVisionModel instantiates the client for providerID.
func NewVisionModel(ctx context.Context, providerID, apiKey string, opts Options) (VisionModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key for %s is required", providerID)
	}
	switch strings.TrimSpace(providerID) {
	case ProviderGemini:
		return NewGeminiClient(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAIVisionClient(ctx, apiKey, opts)
	case ProviderAnthropic:
		return NewClaudeVisionClient(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerID)
	}
}
