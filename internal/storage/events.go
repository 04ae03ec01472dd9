package storage

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// EventWriter is the interface for recording generation events.
// Write() must NEVER block the caller.
type EventWriter interface {
	Write(event *GenerationEvent)
	Close()
}

// GenerationEvent describes the outcome of one /api/generate call.
// It carries metadata only: tool inputs and model output are never recorded.
type GenerationEvent struct {
	RequestID      string
	Timestamp      time.Time
	Tool           string
	ClientHash     string // HashClientKey of the rate-limit key
	Outcome        string // "ok" or the failure kind
	StatusCode     uint16
	UpstreamStatus uint16 // 0 unless the completion API answered non-2xx
	Model          string
	OutputBytes    uint32
	LatencyMs      float32
}

// clientHashBytes is the length of the client hash before hex encoding.
const clientHashBytes = 16

// HashClientKey returns a short unkeyed BLAKE2b digest of a client key so
// events can be grouped per client without storing addresses.
func HashClientKey(key string) string {
	h, err := blake2b.New(clientHashBytes, nil)
	if err != nil {
		// Only fails for an invalid size or key length.
		return ""
	}
	h.Write([]byte(key)) //nolint:errcheck
	return hex.EncodeToString(h.Sum(nil))
}
