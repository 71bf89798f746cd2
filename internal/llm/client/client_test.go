package client

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeChatModel struct {
	reply    *schema.Message
	err      error
	received []*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.received = input
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func sampleRequest() VisionRequest {
	return VisionRequest{
		SystemInstruction: "review the screens",
		Prompt:            "Screens: s1, s2",
		Images: []Image{
			{ScreenID: "s1", Data: []byte{1, 2, 3}, MIMEType: "image/png"},
			{ScreenID: "s2", Data: []byte{4, 5}, MIMEType: "image/jpeg"},
		},
		Schema: ReviewResponseSchema(),
	}
}

func TestImageDataURL(t *testing.T) {
	img := Image{Data: []byte("hi"), MIMEType: "image/png"}
	assert.Equal(t, "data:image/png;base64,aGk=", img.DataURL())
}

func TestBuildGeminiRequest(t *testing.T) {
	contents, config := buildGeminiRequest(sampleRequest(), 0)

	require.Len(t, contents, 1)
	parts := contents[0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, "Screens: s1, s2", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte{4, 5}, parts[2].InlineData.Data)

	assert.Equal(t, "application/json", config.ResponseMIMEType)
	assert.NotNil(t, config.ResponseSchema)
	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "review the screens", config.SystemInstruction.Parts[0].Text)
	assert.Nil(t, config.Temperature)

	_, config = buildGeminiRequest(sampleRequest(), 0.2)
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.2, *config.Temperature, 1e-6)
}

func TestBuildEinoMessages(t *testing.T) {
	messages, err := buildEinoMessages(sampleRequest())
	require.NoError(t, err)

	require.Len(t, messages, 2)
	assert.Equal(t, schema.System, messages[0].Role)
	assert.True(t, strings.HasPrefix(messages[0].Content, "review the screens"))
	assert.Contains(t, messages[0].Content, "recommendation")

	user := messages[1]
	assert.Equal(t, schema.User, user.Role)
	require.Len(t, user.MultiContent, 3)
	assert.Equal(t, schema.ChatMessagePartTypeText, user.MultiContent[0].Type)
	require.NotNil(t, user.MultiContent[1].ImageURL)
	assert.True(t, strings.HasPrefix(user.MultiContent[1].ImageURL.URL, "data:image/png;base64,"))
	assert.Equal(t, "image/jpeg", user.MultiContent[2].ImageURL.MIMEType)
}

func TestEinoClientGenerateJSON(t *testing.T) {
	fake := &fakeChatModel{reply: schema.AssistantMessage(`{"issues":[]}`, nil)}
	c := NewEinoClient(fake, "openai:test", 0)

	out, err := c.GenerateJSON(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"issues":[]}`, out)
	assert.Len(t, fake.received, 2)
	assert.Equal(t, "openai:test", c.Name())

	fake.err = errors.New("rate limited")
	_, err = c.GenerateJSON(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, fake.err)
}

func TestNewVisionModel(t *testing.T) {
	ctx := context.Background()

	_, err := NewVisionModel(ctx, ProviderGemini, " ", Options{})
	assert.Error(t, err)
	_, err = NewVisionModel(ctx, "mistral", "key", Options{})
	assert.Error(t, err)

	openaiModel, err := NewVisionModel(ctx, ProviderOpenAI, "key", Options{})
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4.1-mini", openaiModel.Name())

	claudeModel, err := NewVisionModel(ctx, ProviderAnthropic, "key", Options{Model: "claude-opus-4-1"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic:claude-opus-4-1", claudeModel.Name())

	geminiModel, err := NewVisionModel(ctx, ProviderGemini, "key", Options{Model: "gemini-2.5-pro"})
	require.NoError(t, err)
	assert.Equal(t, "gemini:gemini-2.5-pro", geminiModel.Name())
}

func TestSchemas(t *testing.T) {
	review := ReviewResponseSchema()
	assert.Equal(t, genai.TypeObject, review.Type)
	issues := review.Properties["issues"]
	require.NotNil(t, issues)
	assert.ElementsMatch(t,
		[]string{"title", "severity", "evidence", "impact", "recommendation", "anchors"},
		issues.Items.Required)

	recheck := RecheckResponseSchema()
	assert.Equal(t, []string{"open", "fixed"}, recheck.Properties["status"].Enum)
}

func TestPrompts(t *testing.T) {
	for _, name := range []string{PromptReview, PromptRecheck} {
		text, err := Prompt(name)
		require.NoError(t, err)
		assert.NotEmpty(t, strings.TrimSpace(text))
	}
	_, err := Prompt("missing")
	assert.Error(t, err)
}
