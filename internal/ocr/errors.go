package ocr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies every failure the pipeline can produce
type ErrorCode string

const (
	// Validation errors
	ErrUnsupportedType ErrorCode = "unsupported_type"
	ErrFileTooLarge    ErrorCode = "file_too_large"
	ErrEmptyFile       ErrorCode = "empty_file"
	ErrCorruptImage    ErrorCode = "corrupt_image"

	// Preprocessing errors
	ErrDecodeFailed    ErrorCode = "decode_failed"
	ErrDegenerateImage ErrorCode = "degenerate_image"

	// Extraction errors
	ErrNoTextFound   ErrorCode = "no_text_found"
	ErrEngineFailure ErrorCode = "engine_failure"
	ErrTimeout       ErrorCode = "timeout"

	// Batch errors
	ErrBatchTooLarge ErrorCode = "batch_too_large"
)

// PipelineError represents a structured pipeline failure. Message is the
// plain-language string shown to users; Cause carries internal detail
// that only ever reaches the logs.
type PipelineError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// CodeOf extracts the pipeline error code, or "" for foreign errors
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// UserMessage returns the message for err that is safe to show to users.
// Foreign errors map to a generic message so engine and library
// diagnostics never leak.
func UserMessage(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return "An internal server error occurred. Please try again."
}

// Factory functions for the fixed error vocabulary

func newUnsupportedTypeError(allowed []string) *PipelineError {
	return &PipelineError{
		Code:    ErrUnsupportedType,
		Message: fmt.Sprintf("Invalid file type. Please upload: %s.", strings.Join(allowed, ", ")),
	}
}

func newFileTooLargeError(limitMB int) *PipelineError {
	return &PipelineError{
		Code:    ErrFileTooLarge,
		Message: fmt.Sprintf("File size exceeds the %dMB limit.", limitMB),
	}
}

func newEmptyFileError() *PipelineError {
	return &PipelineError{
		Code:    ErrEmptyFile,
		Message: "The uploaded file is empty. Please select a valid image.",
	}
}

func newCorruptImageError(cause error) *PipelineError {
	return &PipelineError{
		Code:    ErrCorruptImage,
		Message: "The file could not be read as an image. Please upload a valid image file.",
		Cause:   cause,
	}
}

func newDecodeFailedError(cause error) *PipelineError {
	return &PipelineError{
		Code:    ErrDecodeFailed,
		Message: "Failed to process the image. Please ensure it's a valid image file.",
		Cause:   cause,
	}
}

func newDegenerateImageError(width, height int) *PipelineError {
	return &PipelineError{
		Code:    ErrDegenerateImage,
		Message: "The image is too small to contain readable text.",
		Cause:   fmt.Errorf("degenerate dimensions %dx%d", width, height),
	}
}

func newNoTextFoundError() *PipelineError {
	return &PipelineError{
		Code:    ErrNoTextFound,
		Message: "No text could be extracted from the image. Please try a different image.",
	}
}

func newEngineFailureError(cause error) *PipelineError {
	return &PipelineError{
		Code:    ErrEngineFailure,
		Message: "Text recognition failed. Please try again with a clearer image.",
		Cause:   cause,
	}
}

func newTimeoutError(cause error) *PipelineError {
	return &PipelineError{
		Code:    ErrTimeout,
		Message: "Processing took too long and was stopped. Please try again.",
		Cause:   cause,
	}
}

func newBatchTooLargeError(limit, submitted int) *PipelineError {
	return &PipelineError{
		Code:    ErrBatchTooLarge,
		Message: fmt.Sprintf("Too many files. Please upload at most %d images per batch.", limit),
		Cause:   fmt.Errorf("%d files submitted", submitted),
	}
}
