package api

import (
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/edublink/edublink/internal/dispatch"
	"go.uber.org/zap"
)

// maxBodyBytes caps the size of a generate request body.
const maxBodyBytes = 1 << 20

// handleHealth implements GET /api/health.
func (d *Dependencies) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResp{
		Status:           "healthy",
		Model:            d.Model,
		APIKeyConfigured: d.KeyConfigured,
	})
}

// handleGenerate implements POST /api/generate.
// Validation of the body happens in the dispatcher so every outcome is recorded.
func (d *Dependencies) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResp{Detail: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Could not read request body"})
		return
	}

	res, err := d.Dispatcher.Generate(r.Context(), d.clientIP(r), body)
	if err != nil {
		var de *dispatch.Error
		if !errors.As(err, &de) {
			d.Logger.Error("unclassified generate error", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Internal server error"})
			return
		}
		if de.RequestID != "" {
			w.Header().Set("X-Request-ID", de.RequestID)
		}
		resp := ErrorResp{Detail: de.Detail}
		if de.Kind == dispatch.KindRateLimited {
			resp.Error = de.Detail
			w.Header().Set("Retry-After", retryAfterSeconds(de))
		}
		writeJSON(w, de.Kind.Status(), resp)
		return
	}

	w.Header().Set("X-Request-ID", res.RequestID)
	writeJSON(w, http.StatusOK, res)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer func() { _ = r.Body.Close() }()
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

// clientIP returns the address used as the rate-limit key.
func (d *Dependencies) clientIP(r *http.Request) string {
	if d.TrustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// retryAfterSeconds rounds up so clients never retry before the window resets.
func retryAfterSeconds(de *dispatch.Error) string {
	secs := int(math.Ceil(de.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
