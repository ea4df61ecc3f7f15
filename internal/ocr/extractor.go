package ocr

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/textsnap/batch-ocr-service/internal/engine"
)

// ExtractionResult is the normalized outcome of recognition on one item
type ExtractionResult struct {
	Text      string
	CharCount int
}

// Extractor invokes the configured recognition engine and normalizes its
// output. Engine mode and language are fixed for the whole service;
// nothing here adapts per image.
type Extractor struct {
	engine   engine.Engine
	language string
}

func NewExtractor(eng engine.Engine, language string) *Extractor {
	if language == "" {
		language = "eng"
	}
	return &Extractor{
		engine:   eng,
		language: language,
	}
}

// Extract runs recognition on a prepared image. Leading and trailing
// whitespace is stripped before judging the result, so a response of
// pure whitespace is a no-text failure, never an empty success.
func (e *Extractor) Extract(ctx context.Context, img *PreparedImage) (ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return ExtractionResult{}, newTimeoutError(err)
	}

	encoded, err := img.PNG()
	if err != nil {
		return ExtractionResult{}, newEngineFailureError(err)
	}

	res, err := e.engine.Recognize(ctx, engine.Request{Image: encoded, Language: e.language})
	if err != nil {
		if ctx.Err() != nil {
			return ExtractionResult{}, newTimeoutError(err)
		}
		return ExtractionResult{}, newEngineFailureError(err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return ExtractionResult{}, newNoTextFoundError()
	}

	count := utf8.RuneCountInString(text)
	log.Printf("[Extractor] %s extracted %d characters", e.engine.Name(), count)
	return ExtractionResult{Text: text, CharCount: count}, nil
}
