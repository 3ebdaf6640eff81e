package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"joltcab/internal/domain"
	"joltcab/internal/repository"
)

// OfferRepository is a PostgreSQL implementation of repository.OfferRepository.
type OfferRepository struct {
	q Querier
}

// NewOfferRepository creates a new PostgreSQL offer repository.
func NewOfferRepository(db *sql.DB) *OfferRepository {
	return &OfferRepository{q: db}
}

// NewOfferRepositoryWithTx creates an offer repository using a transaction.
func NewOfferRepositoryWithTx(tx *sql.Tx) *OfferRepository {
	return &OfferRepository{q: tx}
}

const offerColumns = `
	id, trip_id, driver_id, driver_name, driver_rating,
	price, message, state, created_at, expires_at, responded_at`

// Create persists a new offer.
func (r *OfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	query := `
		INSERT INTO offers (` + offerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		offer.ID,
		offer.TripID,
		offer.DriverID,
		offer.DriverName,
		offer.DriverRating,
		offer.Price,
		nullString(offer.Message),
		offer.State,
		offer.CreatedAt,
		offer.ExpiresAt,
		nullTime(offer.RespondedAt),
	)

	return err
}

// GetByID retrieves an offer by ID.
func (r *OfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

	offer, err := scanOffer(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return offer, nil
}

// ListByTrip retrieves all offers for a trip, oldest first.
func (r *OfferRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE trip_id = $1 ORDER BY created_at ASC`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []*domain.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

// GetPendingByDriver retrieves the driver's pending offer on a trip, or
// nil when the driver has none.
func (r *OfferRepository) GetPendingByDriver(ctx context.Context, tripID, driverID string) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + `
		FROM offers
		WHERE trip_id = $1 AND driver_id = $2 AND state = $3
		ORDER BY created_at DESC LIMIT 1`

	offer, err := scanOffer(r.q.QueryRowContext(ctx, query, tripID, driverID, domain.OfferStatePending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return offer, nil
}

// UpdateState atomically moves an offer from one state to another.
func (r *OfferRepository) UpdateState(ctx context.Context, id string, from, to domain.OfferState, respondedAt time.Time) (bool, error) {
	query := `UPDATE offers SET state = $3, responded_at = $4 WHERE id = $1 AND state = $2`

	result, err := r.q.ExecContext(ctx, query, id, from, to, nullTime(respondedAt))
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ListExpiredPending retrieves pending offers whose expiry has passed.
func (r *OfferRepository) ListExpiredPending(ctx context.Context, now time.Time) ([]*domain.Offer, error) {
	query := `SELECT ` + offerColumns + `
		FROM offers
		WHERE state = $1 AND expires_at <= $2
		ORDER BY expires_at ASC`

	rows, err := r.q.QueryContext(ctx, query, domain.OfferStatePending, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []*domain.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

// supersedePending moves every pending offer on the trip except the one
// being accepted into superseded, returning the offers it touched.
func (r *OfferRepository) supersedePending(ctx context.Context, tripID, exceptOfferID string, respondedAt time.Time) ([]*domain.Offer, error) {
	query := `
		UPDATE offers SET state = $4, responded_at = $3
		WHERE trip_id = $1 AND id <> $2 AND state = $5
		RETURNING ` + offerColumns

	rows, err := r.q.QueryContext(ctx, query, tripID, exceptOfferID, respondedAt,
		domain.OfferStateSuperseded, domain.OfferStatePending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []*domain.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

func scanOffer(row rowScanner) (*domain.Offer, error) {
	var offer domain.Offer
	var message sql.NullString
	var respondedAt sql.NullTime

	err := row.Scan(
		&offer.ID,
		&offer.TripID,
		&offer.DriverID,
		&offer.DriverName,
		&offer.DriverRating,
		&offer.Price,
		&message,
		&offer.State,
		&offer.CreatedAt,
		&offer.ExpiresAt,
		&respondedAt,
	)
	if err != nil {
		return nil, err
	}

	offer.Message = message.String
	if respondedAt.Valid {
		offer.RespondedAt = respondedAt.Time
	}
	return &offer, nil
}
