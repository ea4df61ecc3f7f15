package ocr

import (
	"bytes"
	"fmt"
	"image"
	"path"
	"strings"

	"github.com/textsnap/batch-ocr-service/internal/models"
)

// Validator screens uploads against the configured type and size policy
// before any pixel work happens. It is a pure function of the item and
// the policy; no network or disk access.
type Validator struct {
	allowed     map[string]bool // canonical extensions
	allowedList []string        // as configured, for user messages
	maxBytes    int64
	maxSizeMB   int
	maxBatch    int
}

// NewValidator creates a validator from the upload policy. Zero or
// missing policy values fall back to the service defaults (10 MB,
// 10 files, png/jpg/jpeg/gif/bmp/webp).
func NewValidator(cfg models.UploadConfig) *Validator {
	types := cfg.AllowedTypes
	if len(types) == 0 {
		types = []string{"png", "jpg", "jpeg", "gif", "bmp", "webp"}
	}
	sizeMB := cfg.MaxFileSizeMB
	if sizeMB <= 0 {
		sizeMB = 10
	}
	maxBatch := cfg.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = 10
	}

	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[canonicalFormat(strings.ToLower(t))] = true
	}
	return &Validator{
		allowed:     allowed,
		allowedList: types,
		maxBytes:    int64(sizeMB) << 20,
		maxSizeMB:   sizeMB,
		maxBatch:    maxBatch,
	}
}

// MaxBatchSize returns the configured batch cap
func (v *Validator) MaxBatchSize() int {
	return v.maxBatch
}

// MaxFileBytes returns the per-file byte limit
func (v *Validator) MaxFileBytes() int64 {
	return v.maxBytes
}

// MaxFileSizeMB returns the per-file limit in whole megabytes
func (v *Validator) MaxFileSizeMB() int {
	return v.maxSizeMB
}

// AllowedTypes returns the accepted extensions in display order
func (v *Validator) AllowedTypes() []string {
	return v.allowedList
}

// CheckBatch enforces the batch-level count cap. It runs before any
// per-item work so an oversized batch never touches the pipeline.
func (v *Validator) CheckBatch(n int) error {
	if n > v.maxBatch {
		return newBatchTooLargeError(v.maxBatch, n)
	}
	return nil
}

// Validate screens one item; nil means accepted. Checks run cheapest
// first: a disallowed extension is rejected before any byte of the
// payload is inspected.
func (v *Validator) Validate(item models.UploadItem) error {
	ext := extensionOf(item.Filename)
	if ext == "" || !v.allowed[canonicalFormat(ext)] {
		return newUnsupportedTypeError(v.allowedList)
	}

	if len(item.Data) == 0 {
		return newEmptyFileError()
	}
	if int64(len(item.Data)) > v.maxBytes {
		return newFileTooLargeError(v.maxSizeMB)
	}

	// The extension can lie; the magic bytes cannot
	format := DetectImageFormat(item.Data)
	if format == "" {
		return newCorruptImageError(fmt.Errorf("no image signature in %q", item.Filename))
	}
	if !v.allowed[format] {
		return newUnsupportedTypeError(v.allowedList)
	}

	// Header decode catches truncated or mangled payloads early without
	// paying for a full pixel decode
	if _, _, err := image.DecodeConfig(bytes.NewReader(item.Data)); err != nil {
		return newCorruptImageError(err)
	}

	return nil
}

// extensionOf returns the lowercased filename extension without the dot
func extensionOf(filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
