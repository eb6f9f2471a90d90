package rides

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/swiftride/dispatch/pkg/broker"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/config"
	"github.com/swiftride/dispatch/pkg/logger"
	"github.com/swiftride/dispatch/pkg/models"
	"go.uber.org/zap"
)

const sourceName = "rides-service"

// RepositoryInterface provides ride data access
type RepositoryInterface interface {
	CreateRide(ctx context.Context, ride *models.Ride) error
	GetRideByID(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	CancelRide(ctx context.Context, rideID, riderID uuid.UUID, reason string) error
}

// Publisher sends messages to the dispatch stream
type Publisher interface {
	Publish(ctx context.Context, subject string, msg *broker.Message) error
}

// Service accepts validated ride requests and hands them to the dispatch
// queue. It returns as soon as the request is enqueued; matching happens
// asynchronously in the dispatch service.
type Service struct {
	repo      RepositoryInterface
	publisher Publisher
	cfg       config.DispatchConfig
}

// NewService creates a new rides service
func NewService(repo RepositoryInterface, publisher Publisher, cfg config.DispatchConfig) *Service {
	return &Service{repo: repo, publisher: publisher, cfg: cfg}
}

// RequestRide validates the request, persists a pending ride, and publishes it
// to the dispatch queue. The assigned identifier is returned immediately; the
// caller does not wait for a captain.
func (s *Service) RequestRide(ctx context.Context, riderID uuid.UUID, req *models.RideRequest) (*models.Ride, error) {
	if riderID == uuid.Nil {
		return nil, common.NewValidationError("rider identifier is required")
	}
	if strings.TrimSpace(req.PickupAddress) == "" || strings.TrimSpace(req.DropoffAddress) == "" {
		return nil, common.NewValidationError("pickup and dropoff locations are required")
	}

	ride := &models.Ride{
		ID:             uuid.New(),
		RiderID:        riderID,
		Status:         models.RideStatusPending,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		RequestedAt:    time.Now().UTC(),
	}

	if err := s.repo.CreateRide(ctx, ride); err != nil {
		logger.ErrorContext(ctx, "failed to persist ride", zap.Error(err))
		return nil, common.NewInternalServerError("failed to create ride")
	}

	msg, err := broker.NewMessage(broker.SubjectRideRequested, sourceName, broker.RideRequestedMessage{
		RideID:         ride.ID,
		RiderID:        ride.RiderID,
		PickupAddress:  ride.PickupAddress,
		DropoffAddress: ride.DropoffAddress,
		RequestedAt:    ride.RequestedAt,
	})
	if err != nil {
		return nil, common.NewInternalServerError("failed to encode dispatch message")
	}

	if err := s.publishWithRetry(ctx, broker.SubjectRideRequested, msg); err != nil {
		logger.ErrorContext(ctx, "dispatch publish failed after retries",
			zap.String("ride_id", ride.ID.String()), zap.Error(err))
		// the ride must not linger as pending when dispatch never saw it
		if cancelErr := s.repo.CancelRide(ctx, ride.ID, riderID, "dispatch unavailable"); cancelErr != nil {
			logger.ErrorContext(ctx, "failed to cancel undispatched ride",
				zap.String("ride_id", ride.ID.String()), zap.Error(cancelErr))
		}
		return nil, common.NewDispatchUnavailableError("ride could not be dispatched, please retry")
	}

	logger.InfoContext(ctx, "ride dispatched",
		zap.String("ride_id", ride.ID.String()),
		zap.String("rider_id", riderID.String()))
	return ride, nil
}

// publishWithRetry retries transient publish failures with capped exponential
// backoff. The message keeps its ID across attempts, so the broker-side
// idempotency window absorbs an ack lost in flight.
func (s *Service) publishWithRetry(ctx context.Context, subject string, msg *broker.Message) error {
	attempts := s.cfg.PublishRetries
	if attempts <= 0 {
		attempts = 1
	}
	backoff := s.cfg.PublishBackoff()
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = s.publisher.Publish(ctx, subject, msg)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		logger.WarnContext(ctx, "dispatch publish failed, retrying",
			zap.Int("attempt", attempt), zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}

// GetRide fetches a ride for request correlation across services
func (s *Service) GetRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	return s.repo.GetRideByID(ctx, rideID)
}

// CancelRide cancels a pending or offered ride and notifies the matcher so a
// buffered copy is dropped before it reaches a captain.
func (s *Service) CancelRide(ctx context.Context, rideID, riderID uuid.UUID, reason string) error {
	ride, err := s.repo.GetRideByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.RiderID != riderID {
		return common.NewForbiddenError("ride belongs to another rider")
	}
	if !ride.Status.CanTransition(models.RideStatusCancelled) {
		return common.NewConflictError("ride can no longer be cancelled")
	}

	// the pre-check gives the precise error; the conditional update still
	// decides the race against a concurrent accept
	if err := s.repo.CancelRide(ctx, rideID, riderID, reason); err != nil {
		return err
	}

	msg, err := broker.NewMessage(broker.SubjectRideCancelled, sourceName, broker.RideCancelledMessage{
		RideID:      rideID,
		CancelledBy: riderID,
		Reason:      reason,
		CancelledAt: time.Now().UTC(),
	})
	if err != nil {
		return common.NewInternalServerError("failed to encode cancel message")
	}

	// best effort: the row is already cancelled, the matcher just learns sooner
	if err := s.publishWithRetry(ctx, broker.SubjectRideCancelled, msg); err != nil {
		logger.WarnContext(ctx, "cancel notification publish failed",
			zap.String("ride_id", rideID.String()), zap.Error(err))
	}
	return nil
}
