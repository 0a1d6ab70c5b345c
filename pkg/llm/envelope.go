package llm

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Mode selects between chat-style and legacy completion-style API calls.
type Mode string

const (
	ModeChat       Mode = "chat"
	ModeCompletion Mode = "completion"
)

// DefaultTemperature is used when the envelope does not carry one.
const DefaultTemperature = 0.5

// Envelope is the JSON request object accepted as the CLI's positional argument.
type Envelope struct {
	APIKey      string   `json:"api_key"`
	Mode        Mode     `json:"mode"`
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// ParseEnvelope decodes and validates a request envelope.
func ParseEnvelope(raw string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, errors.Wrap(err, "request is not valid JSON")
	}

	if err := env.Validate(); err != nil {
		return nil, err
	}

	return &env, nil
}

// Validate checks that all required envelope fields are present and the mode
// is one the tool knows how to dispatch.
func (e *Envelope) Validate() error {
	if e.APIKey == "" {
		return errors.New(`request is missing "api_key"`)
	}
	if e.Mode == "" {
		return errors.New(`request is missing "mode"`)
	}
	if e.Mode != ModeChat && e.Mode != ModeCompletion {
		return errors.Errorf("unknown mode %q (want %q or %q)", e.Mode, ModeChat, ModeCompletion)
	}
	if e.Model == "" {
		return errors.New(`request is missing "model"`)
	}
	if e.Prompt == "" {
		return errors.New(`request is missing "prompt"`)
	}

	return nil
}

// TemperatureOr returns the envelope temperature, falling back to def.
func (e *Envelope) TemperatureOr(def float64) float64 {
	return lo.FromPtrOr(e.Temperature, def)
}
