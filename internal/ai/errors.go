package ai

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned before any network call when no API key is
// configured.
var ErrMissingAPIKey = errors.New("AI API key is not configured")

// ExtractionError reports a failed extraction call: a transport failure, a
// non-2xx status, or an unreadable envelope. Message is suitable for display.
type ExtractionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ExtractionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("extraction failed (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("extraction failed: %s", e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ParseError reports model output that is non-empty but not valid JSON.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing extracted todos: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
