package engine

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEngine transcribes images with an OpenAI-compatible vision
// model. A custom base URL points the client at Azure or a local proxy.
type OpenAIEngine struct {
	client *openai.Client
	model  string
}

func NewOpenAIEngine(apiKey, baseURL, model string) *OpenAIEngine {
	if model == "" {
		model = "gpt-4o"
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIEngine{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (o *OpenAIEngine) Name() string {
	return "openai"
}

func (o *OpenAIEngine) Recognize(ctx context.Context, req Request) (Result, error) {
	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.Image)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: visionPrompt(req.Language),
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
				},
			},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("openai: no choices in response")
	}
	return Result{Text: stripCodeFences(resp.Choices[0].Message.Content)}, nil
}
