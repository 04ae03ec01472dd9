package dispatch

import (
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a failed generate request.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindRateLimited
	KindMisconfigured
	KindUnknownTool
	KindUpstream
	KindTimeout
	KindMalformedOutput
)

// String returns the snake_case kind name used in logs and events.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindRateLimited:
		return "rate_limited"
	case KindMisconfigured:
		return "misconfigured"
	case KindUnknownTool:
		return "unknown_tool"
	case KindUpstream:
		return "upstream_error"
	case KindTimeout:
		return "timeout"
	case KindMalformedOutput:
		return "malformed_output"
	default:
		return "unspecified"
	}
}

// Status returns the HTTP status reported to the client.
// Client-caused kinds map to 4xx, everything else to 500.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindUnknownTool:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is returned by Dispatcher.Generate for every failure.
type Error struct {
	Kind      Kind
	Detail    string // human-readable, safe to show to the client
	RequestID string
	Tool      string

	// RetryAfter is set for KindRateLimited.
	RetryAfter time.Duration
	// UpstreamStatus is set for KindUpstream when the API answered non-2xx.
	UpstreamStatus int

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}
