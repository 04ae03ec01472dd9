package api

import (
	"net/http"

	"github.com/edublink/edublink/internal/dispatch"
	"go.uber.org/zap"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Dispatcher    *dispatch.Dispatcher
	Model         string
	KeyConfigured bool
	StaticDir     string // empty disables static file serving
	TrustProxy    bool   // take the client address from X-Forwarded-For
	Logger        *zap.Logger
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", deps.handleHealth)
	mux.HandleFunc("POST /api/generate", deps.handleGenerate)
	mux.HandleFunc("/api/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Not found"})
	})

	// Front-end assets. More specific /api patterns win over this one.
	if deps.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(deps.StaticDir)))
	}

	return corsMiddleware(requestLogging(mux, deps.Logger))
}
