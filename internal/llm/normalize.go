package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const fence = "```"

// StripFence removes a surrounding markdown code fence. The opening line may
// carry a language tag; the closing fence is removed only when it stands alone
// on the last line. Text that does not start with a fence is returned as is.
func StripFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, fence) {
		return raw
	}
	lines := strings.Split(trimmed, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == fence {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

// Normalize unwraps the model output and parses it as a single JSON value.
// Numbers are kept as json.Number so integers round-trip unchanged.
func Normalize(raw string) (any, error) {
	text := StripFence(raw)

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after JSON value", ErrMalformedOutput)
	}
	return v, nil
}

// Preview returns at most n bytes of s for logging, cut on a rune boundary.
func Preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
