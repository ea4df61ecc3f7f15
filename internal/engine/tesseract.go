package engine

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine runs recognition through the local Tesseract
// installation via gosseract. A gosseract client is not safe for
// concurrent use, so each call builds and closes its own.
type TesseractEngine struct {
	pageSegMode gosseract.PageSegMode
}

// NewTesseractEngine creates an engine tuned for uniform blocks of text.
// PSM 6 assumes a single block; the LSTM engine mode is the Tesseract
// default and needs no configuration.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{pageSegMode: gosseract.PSM_SINGLE_BLOCK}
}

func (t *TesseractEngine) Name() string {
	return "tesseract"
}

func (t *TesseractEngine) Recognize(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	lang := req.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		return Result{}, fmt.Errorf("tesseract: set language: %w", err)
	}
	if err := client.SetPageSegMode(t.pageSegMode); err != nil {
		return Result{}, fmt.Errorf("tesseract: set page seg mode: %w", err)
	}
	if err := client.SetImageFromBytes(req.Image); err != nil {
		return Result{}, fmt.Errorf("tesseract: set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return Result{}, fmt.Errorf("tesseract: recognize: %w", err)
	}
	return Result{Text: text}, nil
}
