package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"joltcab/internal/domain"
	"joltcab/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

const tripColumns = `
	id, rider_id,
	pickup_lat, pickup_lng, pickup_address,
	dropoff_lat, dropoff_lng, dropoff_address,
	status, suggested_price, accepted_offer_id, cancel_reason, rating, review,
	fare_distance_km, fare_duration_min, fare_base_price, fare_surge_multiplier,
	fare_factor_time, fare_factor_demand, fare_factor_weather, fare_factor_traffic,
	fare_final_price, fare_degraded,
	created_at, negotiation_deadline, started_at, completed_at, cancelled_at`

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`

	q := trip.ReferenceFare
	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.RiderID,
		trip.Pickup.Latitude,
		trip.Pickup.Longitude,
		trip.Pickup.Address,
		trip.Dropoff.Latitude,
		trip.Dropoff.Longitude,
		trip.Dropoff.Address,
		trip.Status,
		trip.SuggestedPrice,
		nullString(trip.AcceptedOfferID),
		nullString(trip.CancelReason),
		nullFloat(trip.Rating),
		nullString(trip.Review),
		q.DistanceKm,
		q.DurationMin,
		q.BasePrice,
		q.SurgeMultiplier,
		q.Factors.Time,
		q.Factors.Demand,
		q.Factors.Weather,
		q.Factors.Traffic,
		q.FinalPrice,
		q.Degraded,
		trip.CreatedAt,
		trip.NegotiationDeadline,
		nullTime(trip.StartedAt),
		nullTime(trip.CompletedAt),
		nullTime(trip.CancelledAt),
	)

	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return trip, nil
}

// List retrieves trips matching the filter, newest first.
func (r *TripRepository) List(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE 1=1`
	args := []any{}

	if filter.RiderID != "" {
		args = append(args, filter.RiderID)
		query += ` AND rider_id = $1`
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		if len(args) == 1 {
			query += ` AND status = $1`
		} else {
			query += ` AND status = $2`
		}
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

// UpdateStatus atomically moves a trip from one status to another.
// The WHERE status guard is the optimistic-concurrency check: zero rows
// affected means the trip moved and the caller lost the race.
func (r *TripRepository) UpdateStatus(ctx context.Context, id string, from, to domain.TripStatus, update repository.TripUpdate) (bool, error) {
	query := `
		UPDATE trips
		SET status = $3,
		    accepted_offer_id = COALESCE($4, accepted_offer_id),
		    cancel_reason = COALESCE($5, cancel_reason),
		    started_at = COALESCE($6, started_at),
		    completed_at = COALESCE($7, completed_at),
		    cancelled_at = COALESCE($8, cancelled_at)
		WHERE id = $1 AND status = $2
	`

	result, err := r.q.ExecContext(ctx, query,
		id,
		from,
		to,
		nullString(update.AcceptedOfferID),
		nullString(update.CancelReason),
		nullTime(update.StartedAt),
		nullTime(update.CompletedAt),
		nullTime(update.CancelledAt),
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// SetRating records the rider's rating and review.
func (r *TripRepository) SetRating(ctx context.Context, id string, rating float64, review string) error {
	query := `UPDATE trips SET rating = $2, review = $3 WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query, id, rating, nullString(review))
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListNegotiationExpired retrieves negotiating trips whose deadline has
// elapsed. Served by the partial index on negotiation_deadline scoped to
// status = 'negotiating'.
func (r *TripRepository) ListNegotiationExpired(ctx context.Context, now time.Time) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + `
		FROM trips
		WHERE status = $1 AND negotiation_deadline <= $2
		ORDER BY negotiation_deadline ASC`

	rows, err := r.q.QueryContext(ctx, query, domain.TripStatusNegotiating, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var trip domain.Trip
	var acceptedOfferID, cancelReason, review sql.NullString
	var rating sql.NullFloat64
	var startedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&trip.ID,
		&trip.RiderID,
		&trip.Pickup.Latitude,
		&trip.Pickup.Longitude,
		&trip.Pickup.Address,
		&trip.Dropoff.Latitude,
		&trip.Dropoff.Longitude,
		&trip.Dropoff.Address,
		&trip.Status,
		&trip.SuggestedPrice,
		&acceptedOfferID,
		&cancelReason,
		&rating,
		&review,
		&trip.ReferenceFare.DistanceKm,
		&trip.ReferenceFare.DurationMin,
		&trip.ReferenceFare.BasePrice,
		&trip.ReferenceFare.SurgeMultiplier,
		&trip.ReferenceFare.Factors.Time,
		&trip.ReferenceFare.Factors.Demand,
		&trip.ReferenceFare.Factors.Weather,
		&trip.ReferenceFare.Factors.Traffic,
		&trip.ReferenceFare.FinalPrice,
		&trip.ReferenceFare.Degraded,
		&trip.CreatedAt,
		&trip.NegotiationDeadline,
		&startedAt,
		&completedAt,
		&cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	trip.AcceptedOfferID = acceptedOfferID.String
	trip.CancelReason = cancelReason.String
	trip.Rating = rating.Float64
	trip.Review = review.String
	if startedAt.Valid {
		trip.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		trip.CompletedAt = completedAt.Time
	}
	if cancelledAt.Valid {
		trip.CancelledAt = cancelledAt.Time
	}
	return &trip, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f float64) sql.NullFloat64 {
	if f == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
