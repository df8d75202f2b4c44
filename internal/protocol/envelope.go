// ABOUTME: JSON envelope framing for the duplex channel.
// ABOUTME: Every wire frame is {event, id?, data}; id correlates direct acks.

package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope is the single frame type carried on the channel in both
// directions. Event selects the handler; Data is the event payload. ID is
// set only on frames that expect (or are) a direct acknowledgement.
type Envelope struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope builds an envelope for event with v marshaled as the payload.
// A nil v produces an envelope with no payload.
func NewEnvelope(event string, v any) (*Envelope, error) {
	env := &Envelope{Event: event}
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", event, err)
		}
		env.Data = data
	}
	return env, nil
}

// Decode unmarshals the envelope payload into v.
func (e *Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s envelope has no payload", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Event, err)
	}
	return nil
}

// AckPayload is the payload of an EventAck envelope answering a
// join-session or leave-session request.
type AckPayload struct {
	Success bool `json:"success"`
}
