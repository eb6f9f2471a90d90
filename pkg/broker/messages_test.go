package broker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	payload := RideRequestedMessage{
		RideID:         uuid.New(),
		RiderID:        uuid.New(),
		PickupAddress:  "12 North Ave",
		DropoffAddress: "3 Harbor St",
		RequestedAt:    time.Now().UTC(),
	}

	msg, err := NewMessage(SubjectRideRequested, "rides-service", payload)
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	_, err = uuid.Parse(msg.ID)
	assert.NoError(t, err, "message ID should be a UUID")
	assert.Equal(t, SubjectRideRequested, msg.Type)
	assert.Equal(t, "rides-service", msg.Source)
	assert.False(t, msg.Timestamp.IsZero())

	var decoded RideRequestedMessage
	require.NoError(t, msg.Decode(&decoded))
	assert.Equal(t, payload.RideID, decoded.RideID)
	assert.Equal(t, payload.PickupAddress, decoded.PickupAddress)
}

func TestNewMessageUniqueIDs(t *testing.T) {
	a, err := NewMessage(SubjectRideRequested, "rides-service", struct{}{})
	require.NoError(t, err)
	b, err := NewMessage(SubjectRideRequested, "rides-service", struct{}{})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestMessageDecodeError(t *testing.T) {
	msg := &Message{Type: "bad", Data: []byte(`{"ride_id": "not-a-uuid"`)}
	var decoded RideRequestedMessage
	assert.Error(t, msg.Decode(&decoded))
}
