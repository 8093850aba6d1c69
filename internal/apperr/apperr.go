// Package apperr defines the error kinds surfaced to callers. Every layer
// wraps these with fmt.Errorf and callers classify with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for bad caller input. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidRange is returned when a report start date is after its end date.
	ErrInvalidRange = fmt.Errorf("%w: invalid date range", ErrValidation)

	// ErrExtraction is returned when no JSON object can be recovered from model output.
	ErrExtraction = errors.New("extraction failed")

	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrNotReady          = errors.New("report is not ready yet")
	ErrUnsupportedFormat = errors.New("unsupported report format")

	// ErrReportFailed is returned when an artifact is requested for a report
	// whose render ended in the terminal failed state.
	ErrReportFailed = errors.New("report generation failed")
)

// Validationf returns an ErrValidation with a formatted detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf returns an ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
