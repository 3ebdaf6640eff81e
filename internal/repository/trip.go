package repository

import (
	"context"
	"time"

	"joltcab/internal/domain"
)

// TripFilter narrows List results. Zero values mean "no filter".
type TripFilter struct {
	RiderID string
	Status  domain.TripStatus
}

// TripUpdate carries the column changes applied together with a status
// transition. Zero-valued fields are left untouched.
type TripUpdate struct {
	AcceptedOfferID string
	CancelReason    string
	StartedAt       time.Time
	CompletedAt     time.Time
	CancelledAt     time.Time
}

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// List retrieves trips matching the filter, newest first.
	List(ctx context.Context, filter TripFilter) ([]*domain.Trip, error)

	// UpdateStatus atomically moves a trip from one status to another,
	// applying the update alongside. It returns false when the trip is
	// no longer in the expected status, in which case nothing changed.
	UpdateStatus(ctx context.Context, id string, from, to domain.TripStatus, update TripUpdate) (bool, error)

	// SetRating records the rider's rating and review.
	SetRating(ctx context.Context, id string, rating float64, review string) error

	// ListNegotiationExpired retrieves trips still negotiating whose
	// deadline has elapsed. Backed by an index on
	// (status, negotiation_deadline), never a full table walk.
	ListNegotiationExpired(ctx context.Context, now time.Time) ([]*domain.Trip, error)
}
