package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRideStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    RideStatus
		to      RideStatus
		allowed bool
	}{
		{"pending to offered", RideStatusPending, RideStatusOffered, true},
		{"pending to expired", RideStatusPending, RideStatusExpired, true},
		{"pending to cancelled", RideStatusPending, RideStatusCancelled, true},
		{"pending to accepted", RideStatusPending, RideStatusAccepted, false},
		{"offered to accepted", RideStatusOffered, RideStatusAccepted, true},
		{"offered to expired", RideStatusOffered, RideStatusExpired, true},
		{"offered to cancelled", RideStatusOffered, RideStatusCancelled, true},
		{"offered to pending", RideStatusOffered, RideStatusPending, false},
		{"accepted to cancelled", RideStatusAccepted, RideStatusCancelled, false},
		{"accepted to offered", RideStatusAccepted, RideStatusOffered, false},
		{"expired to offered", RideStatusExpired, RideStatusOffered, false},
		{"cancelled to pending", RideStatusCancelled, RideStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestTerminalStatusesAllowNoTransitions(t *testing.T) {
	for _, status := range []RideStatus{RideStatusAccepted, RideStatusExpired, RideStatusCancelled} {
		for _, next := range []RideStatus{RideStatusPending, RideStatusOffered, RideStatusAccepted, RideStatusExpired, RideStatusCancelled} {
			assert.False(t, status.CanTransition(next), "%s -> %s must be rejected", status, next)
		}
	}
}
