package dispatch

import (
	"time"

	"github.com/google/uuid"
	"github.com/swiftride/dispatch/pkg/models"
)

// Config tunes the long-poll coordinator
type Config struct {
	DefaultPollTimeout time.Duration // used when the client omits a timeout
	MaxPollTimeout     time.Duration // server-side ceiling for client timeouts
	BufferCapacity     int           // max unmatched rides held in memory
	SeenCapacity       int           // dedup window for broker redeliveries
}

// DefaultConfig returns defaults suitable for local development
func DefaultConfig() Config {
	return Config{
		DefaultPollTimeout: 30 * time.Second,
		MaxPollTimeout:     60 * time.Second,
		BufferCapacity:     256,
		SeenCapacity:       4096,
	}
}

// queuedRide is an unmatched ride consumed from the broker, awaiting a captain
type queuedRide struct {
	RideID         uuid.UUID
	RiderID        uuid.UUID
	PickupAddress  string
	DropoffAddress string
	RequestedAt    time.Time
}

func (q *queuedRide) offer() *models.RideOffer {
	return &models.RideOffer{
		RideID:         q.RideID,
		RiderID:        q.RiderID,
		PickupAddress:  q.PickupAddress,
		DropoffAddress: q.DropoffAddress,
		RequestedAt:    q.RequestedAt,
		OfferedAt:      time.Now().UTC(),
	}
}

// session is one captain's pending long poll. The result channel has capacity
// one and receives exactly one value: an offer, or nil for the no-ride cases
// (replaced poll, shutdown). The resolved flag is guarded by the matcher mutex.
type session struct {
	captainID    uuid.UUID
	registeredAt time.Time
	result       chan *models.RideOffer
	resolved     bool
}

// PollResponse is the long-poll endpoint payload
type PollResponse struct {
	Ride     *models.RideOffer `json:"ride"`
	TimedOut bool              `json:"timed_out"`
}

// AcceptResponse confirms an accepted offer
type AcceptResponse struct {
	RideID uuid.UUID         `json:"ride_id"`
	Status models.RideStatus `json:"status"`
}
