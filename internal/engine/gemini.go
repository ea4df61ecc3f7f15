package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiEngine transcribes images with a Gemini vision model
type GeminiEngine struct {
	apiKey string
	model  string
}

func NewGeminiEngine(apiKey, model string) *GeminiEngine {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiEngine{
		apiKey: apiKey,
		model:  model,
	}
}

func (g *GeminiEngine) Name() string {
	return "gemini"
}

func (g *GeminiEngine) Recognize(ctx context.Context, req Request) (Result, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return Result{}, fmt.Errorf("gemini: create client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx,
		genai.ImageData("png", req.Image),
		genai.Text(visionPrompt(req.Language)),
	)
	if err != nil {
		return Result{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		// A blocked or empty candidate is an engine fault, not a blank
		// page; blank pages come back as an empty text part.
		return Result{}, fmt.Errorf("gemini: no candidates in response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return Result{Text: stripCodeFences(sb.String())}, nil
}
