package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Subjects carried by the dispatch stream.
const (
	SubjectRideRequested = "dispatch.ride.requested"
	SubjectRideCancelled = "dispatch.ride.cancelled"
)

// Message is the envelope for everything published through the broker.
// ID doubles as the broker-side idempotency key.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewMessage creates an envelope with a unique ID and current timestamp.
func NewMessage(msgType, source string, data interface{}) (*Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal message data: %w", err)
	}
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Decode unmarshals the message payload into v.
func (m *Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s message: %w", m.Type, err)
	}
	return nil
}

// RideRequestedMessage is the dispatch-queue payload for a new ride request.
type RideRequestedMessage struct {
	RideID         uuid.UUID `json:"ride_id"`
	RiderID        uuid.UUID `json:"rider_id"`
	PickupAddress  string    `json:"pickup_address"`
	DropoffAddress string    `json:"dropoff_address"`
	RequestedAt    time.Time `json:"requested_at"`
}

// RideCancelledMessage notifies the matcher that a buffered ride is gone.
type RideCancelledMessage struct {
	RideID      uuid.UUID `json:"ride_id"`
	CancelledBy uuid.UUID `json:"cancelled_by"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}
