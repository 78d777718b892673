package llm

import (
	"fmt"

	"github.com/quizify/quizify/internal/llm/prompts"
)

// ErrEmptyInput is returned when the caller supplies no content to generate
// from or an empty question set to grade. It is never retried.
var ErrEmptyInput = prompts.ErrEmptyInput

// TransportError reports a terminal failure to obtain a usable response
// from the API: either a non-2xx response (after retries are exhausted for
// retryable statuses) or a network failure that outlived every retry.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport failure after retries: %v", e.Err)
	}
	return fmt.Sprintf("API error: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ExtractionError reports that no syntactically valid JSON could be
// recovered from the model output. Raw carries the offending text for
// diagnostics.
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("invalid model output: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
