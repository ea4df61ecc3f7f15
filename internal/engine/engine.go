package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/textsnap/batch-ocr-service/internal/models"
)

// Engine is the narrow surface the pipeline needs from a recognition
// backend: encoded image bytes and a language hint in, raw text out.
// Implementations must be safe for concurrent use; the batch worker
// pool calls Recognize from several goroutines.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, req Request) (Result, error)
}

// Request carries one prepared image into an engine
type Request struct {
	Image    []byte // encoded image bytes (PNG from the preprocessor)
	Language string // single recognition language, e.g. "eng"
}

// Result is the raw engine output before pipeline normalization
type Result struct {
	Text string
}

// New builds the engine selected by the OCR config
func New(cfg *models.Config) (Engine, error) {
	switch cfg.OCR.Engine {
	case "", "tesseract":
		return NewTesseractEngine(), nil

	case "gemini":
		return NewGeminiEngine(cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model), nil

	case "openai":
		return NewOpenAIEngine(cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.BaseURL, cfg.AI.OpenAI.Model), nil

	default:
		return nil, fmt.Errorf("unsupported OCR engine: %s", cfg.OCR.Engine)
	}
}

// transcriptionPrompt asks vision models for a faithful transcription and
// nothing else, so their output normalizes the same way Tesseract's does
const transcriptionPrompt = "Transcribe ALL text visible in this image exactly as it appears, preserving line breaks. " +
	"Respond with the transcribed text only - no commentary, no markdown, no code fences. " +
	"If the image contains no readable text, respond with an empty message."

func visionPrompt(language string) string {
	if language == "" {
		return transcriptionPrompt
	}
	return fmt.Sprintf("%s The document language code is %q.", transcriptionPrompt, language)
}

// stripCodeFences removes the markdown fences chat models sometimes wrap
// transcriptions in despite instructions
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```text")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
