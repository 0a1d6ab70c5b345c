// Package transcript records completed prompt/response exchanges in a
// content-addressed store.
package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Exchange holds the semantic fields of one completed request.
// Two exchanges with equal fields produce the same record ID.
type Exchange struct {
	Mode        string  `json:"mode"`
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Response    string  `json:"response"`
	Temperature float64 `json:"temperature"`
}

// Record is a single stored exchange. The ID is a content-addressed hash of
// the Exchange fields, so re-recording an identical exchange dedupes.
type Record struct {
	// ID is the content-addressed identifier (SHA-256, hex-encoded).
	ID string `json:"id"`

	// CreatedAt is when the exchange was recorded. Not part of the hash.
	CreatedAt time.Time `json:"created_at"`

	Exchange

	// Token accounting as reported by the API. Not part of the hash.
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// NewRecord creates a record with the computed ID for the given exchange.
func NewRecord(ex Exchange, promptTokens, completionTokens int) *Record {
	return &Record{
		ID:               computeID(ex),
		CreatedAt:        time.Now().UTC(),
		Exchange:         ex,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
	}
}

// computeID calculates the content-addressed hash for an exchange.
func computeID(ex Exchange) string {
	// Canonical JSON encoding for deterministic hashing
	data, err := json.Marshal(ex)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
