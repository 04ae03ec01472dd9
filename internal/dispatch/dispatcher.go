// Package dispatch turns a raw generate request into a parsed model result.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edublink/edublink/internal/llm"
	"github.com/edublink/edublink/internal/prompts"
	"github.com/edublink/edublink/internal/ratelimit"
	"github.com/edublink/edublink/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Limiter decides whether a client may make another request.
type Limiter interface {
	Check(ctx context.Context, key string) (ratelimit.Decision, error)
	Now() time.Time
}

// Result is the success body of POST /api/generate.
type Result struct {
	Success   bool   `json:"success"`
	Tool      string `json:"tool"`
	Data      any    `json:"data"`
	Model     string `json:"model"`
	RequestID string `json:"-"`
}

// Dependencies holds the collaborators of a Dispatcher.
type Dependencies struct {
	Limiter   Limiter
	Registry  *prompts.Registry
	Completer llm.Completer
	Events    storage.EventWriter
	Logger    *zap.Logger

	// Model is reported back in every result.
	Model string
	// KeyConfigured is false when the upstream API key is missing or implausible.
	KeyConfigured bool
}

// Dispatcher validates, rate limits, prompts, calls the model, and parses its output.
// Every step is attempted once; the first failure ends the request.
type Dispatcher struct {
	deps Dependencies
}

// New creates a Dispatcher.
func New(deps Dependencies) *Dispatcher {
	if deps.Events == nil {
		deps.Events = storage.NewLogWriter(deps.Logger)
	}
	return &Dispatcher{deps: deps}
}

// Generate handles one request body from the client identified by clientKey.
// Failures are always returned as *Error.
func (d *Dispatcher) Generate(ctx context.Context, clientKey string, body []byte) (*Result, error) {
	start := time.Now()
	requestID := uuid.New().String()
	log := d.deps.Logger.With(zap.String("request_id", requestID))

	event := &storage.GenerationEvent{
		RequestID:  requestID,
		Timestamp:  start,
		ClientHash: storage.HashClientKey(clientKey),
		Model:      d.deps.Model,
	}
	defer func() {
		event.LatencyMs = float32(time.Since(start)) / float32(time.Millisecond)
		d.deps.Events.Write(event)
	}()

	res, err := d.generate(ctx, log, clientKey, body, event)
	if err != nil {
		var de *Error
		if !errors.As(err, &de) {
			de = &Error{Kind: KindUpstream, Detail: err.Error(), Err: err}
		}
		de.RequestID = requestID
		de.Tool = event.Tool
		event.Outcome = de.Kind.String()
		event.StatusCode = uint16(de.Kind.Status())
		event.UpstreamStatus = uint16(de.UpstreamStatus)

		if de.Kind.Status() >= 500 {
			log.Error("generate failed", zap.String("kind", de.Kind.String()), zap.Error(de))
		} else {
			log.Info("generate rejected", zap.String("kind", de.Kind.String()), zap.String("detail", de.Detail))
		}
		return nil, de
	}

	res.RequestID = requestID
	event.Outcome = "ok"
	event.StatusCode = 200
	log.Info("generate succeeded", zap.String("tool", res.Tool))
	return res, nil
}

func (d *Dispatcher) generate(
	ctx context.Context,
	log *zap.Logger,
	clientKey string,
	body []byte,
	event *storage.GenerationEvent,
) (*Result, error) {
	log.Debug("raw request body", zap.ByteString("body", body))

	// 1. Validate
	req, err := ParseRequest(body)
	if err != nil {
		log.Info("request validation failed", zap.Error(err))
		return nil, &Error{Kind: KindValidation, Detail: err.Error(), Err: err}
	}
	event.Tool = req.Tool
	log.Debug("request", zap.String("tool", req.Tool), zap.Any("inputs", req.Inputs))

	// 2. Rate limit
	decision, err := d.deps.Limiter.Check(ctx, clientKey)
	switch {
	case err != nil:
		// Quota is advisory: a broken limiter store must not take the service down.
		log.Warn("rate limiter unavailable, allowing request", zap.Error(err))
	case !decision.Allowed:
		return nil, &Error{
			Kind:       KindRateLimited,
			Detail:     "Too many requests",
			RetryAfter: decision.RetryAfter(d.deps.Limiter.Now()),
		}
	}

	// 3. API key
	if !d.deps.KeyConfigured {
		return nil, &Error{Kind: KindMisconfigured, Detail: "API key not configured"}
	}

	// 4. Prompt
	prompt, err := d.deps.Registry.Build(req.Tool, req.Inputs)
	if err != nil {
		return nil, &Error{Kind: KindUnknownTool, Detail: fmt.Sprintf("Unknown tool: %s", req.Tool), Err: err}
	}

	// 5. Completion
	content, err := d.deps.Completer.Complete(ctx, llm.Request{
		System:      prompt.System,
		User:        prompt.User,
		Temperature: prompt.Temperature,
		MaxTokens:   prompt.MaxTokens,
	})
	if err != nil {
		return nil, classifyCompletionError(err)
	}
	event.OutputBytes = uint32(len(content))
	log.Debug("model response", zap.String("content_preview", llm.Preview(content, 200)))

	// 6. Normalize
	data, err := llm.Normalize(content)
	if err != nil {
		return nil, &Error{Kind: KindMalformedOutput, Detail: "Model returned output that is not valid JSON", Err: err}
	}

	return &Result{
		Success: true,
		Tool:    req.Tool,
		Data:    data,
		Model:   d.deps.Model,
	}, nil
}

func classifyCompletionError(err error) *Error {
	var ue *llm.UpstreamError
	switch {
	case errors.As(err, &ue):
		detail := fmt.Sprintf("OpenAI API error (HTTP %d)", ue.StatusCode)
		switch {
		case ue.IsAuthError():
			detail = fmt.Sprintf("OpenAI rejected the API key (HTTP %d)", ue.StatusCode)
		case ue.IsRateLimited():
			detail = "OpenAI rate limit exceeded (HTTP 429)"
		}
		return &Error{
			Kind:           KindUpstream,
			Detail:         detail,
			UpstreamStatus: ue.StatusCode,
			Err:            err,
		}
	case errors.Is(err, llm.ErrTimeout):
		return &Error{Kind: KindTimeout, Detail: "OpenAI API timed out", Err: err}
	default:
		return &Error{Kind: KindUpstream, Detail: "OpenAI API request failed", Err: err}
	}
}
