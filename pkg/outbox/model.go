package outbox

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Topics carried by the bus. The event type of an outbox row is the topic it is published to.
const (
	TopicBookingPlaced = "booking-placed"
	TopicEventPlaced   = "event-placed"
)

type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RetryCount    int
	LastError     *string
}

// Placed is the body of every "*-placed" notification message.
type Placed struct {
	EntityID    string `json:"entityId"`
	NotifyEmail string `json:"notifyEmail"`
}

// NewPlaced builds a pending outbox row announcing that aggregateID was committed.
func NewPlaced(aggregateType, topic, aggregateID, notifyEmail, traceparent string) (Event, error) {
	payload, err := json.Marshal(Placed{EntityID: aggregateID, NotifyEmail: notifyEmail})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          topic,
		Payload:       payload,
		Headers:       map[string]string{"aggregate_type": aggregateType},
		Traceparent:   traceparent,
		CreatedAt:     time.Now().UTC(),
		Status:        StatusPending,
	}, nil
}
