package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates the upstream API did not answer within the client timeout.
	ErrTimeout = errors.New("upstream request timed out")

	// ErrEmptyResponse indicates the upstream API answered without any choices.
	ErrEmptyResponse = errors.New("empty response from upstream")

	// ErrMalformedOutput indicates the model output could not be parsed as JSON.
	ErrMalformedOutput = errors.New("malformed model output")
)

// maxErrorBody caps how much of an upstream error body is kept.
const maxErrorBody = 4096

// UpstreamError is returned when the completion API answers with a non-2xx status.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

// IsAuthError reports whether the upstream rejected the API key.
func (e *UpstreamError) IsAuthError() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsRateLimited reports whether the upstream throttled the request.
func (e *UpstreamError) IsRateLimited() bool {
	return e.StatusCode == 429
}
