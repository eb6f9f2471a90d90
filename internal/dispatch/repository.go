package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/swiftride/dispatch/pkg/common"
)

// Repository is the pgx-backed RideStore. Status monotonicity is enforced in
// the WHERE clauses, so a lost race simply updates zero rows.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new dispatch repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// MarkOffered records the offered transition. Rides already in the offered
// state match too, so an offer whose captain disconnected before delivery can
// move to the next captain without leaving the offered state.
func (r *Repository) MarkOffered(ctx context.Context, rideID, captainID uuid.UUID) error {
	query := `
		UPDATE rides
		SET status = 'offered', captain_id = $2, offered_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'offered')`

	tag, err := r.db.Exec(ctx, query, rideID, captainID)
	if err != nil {
		return fmt.Errorf("mark ride offered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewConflictError("ride is no longer available for offers")
	}
	return nil
}

// MarkAccepted transitions offered -> accepted only for the captain holding
// the offer. Zero rows means a stale or foreign accept; the ride row is
// untouched in that case.
func (r *Repository) MarkAccepted(ctx context.Context, rideID, captainID uuid.UUID) error {
	query := `
		UPDATE rides
		SET status = 'accepted', accepted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'offered' AND captain_id = $2`

	tag, err := r.db.Exec(ctx, query, rideID, captainID)
	if err != nil {
		return fmt.Errorf("mark ride accepted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewOfferMismatchError("no matching offer for this captain")
	}
	return nil
}

// MarkExpired transitions a non-terminal ride to expired
func (r *Repository) MarkExpired(ctx context.Context, rideID uuid.UUID) error {
	query := `
		UPDATE rides
		SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'offered')`

	if _, err := r.db.Exec(ctx, query, rideID); err != nil {
		return fmt.Errorf("mark ride expired: %w", err)
	}
	return nil
}
