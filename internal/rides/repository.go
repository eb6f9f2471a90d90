package rides

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/models"
)

// Repository handles ride data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new rides repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateRide inserts a new ride row
func (r *Repository) CreateRide(ctx context.Context, ride *models.Ride) error {
	query := `
		INSERT INTO rides (id, rider_id, status, pickup_address, dropoff_address, requested_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`

	_, err := r.db.Exec(ctx, query,
		ride.ID, ride.RiderID, ride.Status, ride.PickupAddress, ride.DropoffAddress, ride.RequestedAt)
	if err != nil {
		return fmt.Errorf("create ride: %w", err)
	}
	return nil
}

// GetRideByID fetches a ride by its identifier
func (r *Repository) GetRideByID(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	query := `
		SELECT id, rider_id, captain_id, status, pickup_address, dropoff_address,
		       requested_at, offered_at, accepted_at, cancelled_at, cancel_reason,
		       created_at, updated_at
		FROM rides
		WHERE id = $1`

	var ride models.Ride
	err := r.db.QueryRow(ctx, query, rideID).Scan(
		&ride.ID, &ride.RiderID, &ride.CaptainID, &ride.Status,
		&ride.PickupAddress, &ride.DropoffAddress,
		&ride.RequestedAt, &ride.OfferedAt, &ride.AcceptedAt,
		&ride.CancelledAt, &ride.CancelReason,
		&ride.CreatedAt, &ride.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("ride not found")
		}
		return nil, fmt.Errorf("get ride: %w", err)
	}
	return &ride, nil
}

// CancelRide cancels a ride from the pending or offered state only, keeping
// the status machine monotonic. Zero rows means the ride is already terminal.
func (r *Repository) CancelRide(ctx context.Context, rideID, riderID uuid.UUID, reason string) error {
	query := `
		UPDATE rides
		SET status = 'cancelled', cancelled_at = NOW(), cancel_reason = $3, updated_at = NOW()
		WHERE id = $1 AND rider_id = $2 AND status IN ('pending', 'offered')`

	tag, err := r.db.Exec(ctx, query, rideID, riderID, reason)
	if err != nil {
		return fmt.Errorf("cancel ride: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewConflictError("ride can no longer be cancelled")
	}
	return nil
}
