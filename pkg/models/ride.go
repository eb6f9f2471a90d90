package models

import (
	"time"

	"github.com/google/uuid"
)

// RideStatus represents the status of a ride request
type RideStatus string

const (
	RideStatusPending   RideStatus = "pending"
	RideStatusOffered   RideStatus = "offered"
	RideStatusAccepted  RideStatus = "accepted"
	RideStatusExpired   RideStatus = "expired"
	RideStatusCancelled RideStatus = "cancelled"
)

// rideTransitions encodes the monotonic status machine:
// pending -> offered -> {accepted | expired}, cancelled from pending/offered only.
var rideTransitions = map[RideStatus][]RideStatus{
	RideStatusPending: {RideStatusOffered, RideStatusExpired, RideStatusCancelled},
	RideStatusOffered: {RideStatusAccepted, RideStatusExpired, RideStatusCancelled},
}

// CanTransition reports whether moving from s to next is a legal forward step.
func (s RideStatus) CanTransition(next RideStatus) bool {
	for _, allowed := range rideTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Ride represents a ride request in the system
type Ride struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	RiderID         uuid.UUID  `json:"rider_id" db:"rider_id"`
	CaptainID       *uuid.UUID `json:"captain_id,omitempty" db:"captain_id"`
	Status          RideStatus `json:"status" db:"status"`
	PickupAddress   string     `json:"pickup_address" db:"pickup_address"`
	DropoffAddress  string     `json:"dropoff_address" db:"dropoff_address"`
	RequestedAt     time.Time  `json:"requested_at" db:"requested_at"`
	OfferedAt       *time.Time `json:"offered_at,omitempty" db:"offered_at"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelReason    *string    `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// RideRequest represents a ride creation payload from a rider.
// The pickup/dropoff descriptors are opaque to the dispatch core.
type RideRequest struct {
	PickupAddress  string `json:"pickup_address" binding:"required"`
	DropoffAddress string `json:"dropoff_address" binding:"required"`
}

// RideOffer is the payload delivered to a captain whose poll resolves with a ride.
type RideOffer struct {
	RideID         uuid.UUID `json:"ride_id"`
	RiderID        uuid.UUID `json:"rider_id"`
	PickupAddress  string    `json:"pickup_address"`
	DropoffAddress string    `json:"dropoff_address"`
	RequestedAt    time.Time `json:"requested_at"`
	OfferedAt      time.Time `json:"offered_at"`
}

// RideCancelRequest represents a ride cancellation payload
type RideCancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}
