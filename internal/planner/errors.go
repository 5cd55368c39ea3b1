package planner

import (
	"fmt"
	"net/http"
)

// ConfigurationError reports a missing or invalid setting discovered while
// generating a plan, typically the completion service credential.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Setting)
}

// GenerationError wraps any failure of the completion call. StatusCode is
// zero when no HTTP response was received.
type GenerationError struct {
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("plan generation failed (%d %s): %v", e.StatusCode, http.StatusText(e.StatusCode), e.Err)
	}
	return fmt.Sprintf("plan generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ParseError means the model output held no JSON object after extraction.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("the AI response was not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
