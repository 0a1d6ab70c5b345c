// Package llm provides internal representations of LLM inference API requests
// and responses, plus the request envelope the CLI accepts on the command line.
package llm

// APIError is the error object returned by OpenAI-compatible endpoints.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ErrorResponse represents an error body from the LLM API.
type ErrorResponse struct {
	Error APIError `json:"error"`
}
