package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types emitted outside the clock itself
const (
	EventGameRecorded = "game_recorded"
	EventGameDeleted  = "game_deleted"
	EventGameStarted  = "game_started"
	EventGameEnded    = "game_ended"
)

// Envelope is the wire format shared by the WebSocket gateway and the message bus
type Envelope struct {
	ID        string          `json:"id"`        // Event UUID
	Type      string          `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// NewEnvelope marshals payload into a new envelope
func NewEnvelope(eventType string, payload any, at time.Time) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: at.UTC(),
		Data:      data,
	}, nil
}

// Sink receives events for delivery. Emit must not block.
type Sink interface {
	Emit(eventType string, payload any)
}

// Fanout emits to every sink in order
type Fanout []Sink

func (f Fanout) Emit(eventType string, payload any) {
	for _, s := range f {
		if s != nil {
			s.Emit(eventType, payload)
		}
	}
}

// NopSink drops every event
type NopSink struct{}

func (NopSink) Emit(string, any) {}
