package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether an error should be retried by the orchestrator.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

// IncompleteSpeechError is the fatal export precondition: one or more speech
// segments have no rendered audio. It names the missing sequence indices so
// the caller knows exactly which upstream work to rerun.
type IncompleteSpeechError struct {
	TextID         int64
	MissingIndices []int
}

func (e *IncompleteSpeechError) Error() string {
	indices := make([]string, 0, len(e.MissingIndices))
	for _, idx := range e.MissingIndices {
		indices = append(indices, fmt.Sprintf("%d", idx))
	}
	return fmt.Sprintf("text %d: speech audio missing for segment(s) %s",
		e.TextID, strings.Join(indices, ", "))
}

// Unwrap tags the error as a validation failure so it is never retried.
func (e *IncompleteSpeechError) Unwrap() error { return ErrValidation }

// NewIncompleteSpeechError builds the fatal missing-speech error with the
// missing indices in ascending order.
func NewIncompleteSpeechError(textID int64, missing []int) *IncompleteSpeechError {
	sorted := append([]int{}, missing...)
	sort.Ints(sorted)
	return &IncompleteSpeechError{TextID: textID, MissingIndices: sorted}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
