package api

// HealthResp is the body of GET /api/health.
type HealthResp struct {
	Status           string `json:"status"`
	Model            string `json:"model"`
	APIKeyConfigured bool   `json:"apiKeyConfigured"`
}

// ErrorResp is a standard error response body.
// Error is only set on 429, where existing clients read it instead of detail.
type ErrorResp struct {
	Detail string `json:"detail"`
	Error  string `json:"error,omitempty"`
}
