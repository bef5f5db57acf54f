package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dkeye/callhub/internal/core"
	"github.com/go-playground/validator/v10"
)

// Envelope wraps every event sent over the wire in either direction.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses the envelope of an inbound frame. The data part is left raw
// until the dispatcher knows which payload to bind it to.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", core.ErrMalformedEvent, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", core.ErrMalformedEvent)
	}
	return env, nil
}

// Bind unmarshals the envelope data into dst and validates required fields.
func (e Envelope) Bind(dst any) error {
	data := e.Data
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrMalformedEvent, e.Type, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrMalformedEvent, e.Type, err)
	}
	return nil
}

// Encode builds the wire frame for an outbound event. HTML escaping is off
// so relayed payloads reach the peer byte-for-byte.
func Encode(event string, payload any) (core.Frame, error) {
	env := Envelope{Type: event}
	if payload != nil {
		data, err := marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		env.Data = data
	}
	b, err := marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return b, nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
