package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventAdviceGenerated is published after every advice response.
const EventAdviceGenerated = "advice.generated"

// AdviceEvent describes a served advice response. It carries no user text.
type AdviceEvent struct {
	ID        string    `json:"event_id"`
	Type      string    `json:"type"`
	Operation string    `json:"operation"`
	Persona   string    `json:"persona"`
	Source    string    `json:"source"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAdviceEvent stamps a new event with a random id and the current time.
func NewAdviceEvent(operation, persona, source string) *AdviceEvent {
	return &AdviceEvent{
		ID:        uuid.NewString(),
		Type:      EventAdviceGenerated,
		Operation: operation,
		Persona:   persona,
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *AdviceEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// AdviceEventFromJSON decodes an event
func AdviceEventFromJSON(data []byte) (*AdviceEvent, error) {
	var evt AdviceEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
