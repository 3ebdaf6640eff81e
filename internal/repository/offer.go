package repository

import (
	"context"
	"errors"
	"time"

	"joltcab/internal/domain"
)

// OfferRepository defines the persistence operations for offers.
type OfferRepository interface {
	// Create persists a new offer.
	Create(ctx context.Context, offer *domain.Offer) error

	// GetByID retrieves an offer by ID.
	GetByID(ctx context.Context, id string) (*domain.Offer, error)

	// ListByTrip retrieves all offers for a trip, oldest first.
	ListByTrip(ctx context.Context, tripID string) ([]*domain.Offer, error)

	// GetPendingByDriver retrieves the driver's pending offer on a trip.
	// Returns nil, nil when the driver has none.
	GetPendingByDriver(ctx context.Context, tripID, driverID string) (*domain.Offer, error)

	// UpdateState atomically moves an offer from one state to another,
	// stamping respondedAt. It returns false when the offer is no longer
	// in the expected state, in which case nothing changed.
	UpdateState(ctx context.Context, id string, from, to domain.OfferState, respondedAt time.Time) (bool, error)

	// ListExpiredPending retrieves pending offers whose expiry has passed.
	ListExpiredPending(ctx context.Context, now time.Time) ([]*domain.Offer, error)
}

// AcceptResult is the outcome of an exclusive offer acceptance.
type AcceptResult struct {
	Trip       *domain.Trip
	Offer      *domain.Offer
	Superseded []*domain.Offer
}

// NegotiationStore bundles the mutations that must commit as one unit
// when an offer is accepted: the target offer becomes accepted, every
// other pending offer on the trip becomes superseded, and the trip moves
// to accepted with the offer recorded. Implementations guarantee the
// whole operation is atomic; a caller racing a committed acceptance gets
// ErrStaleState and no mutation.
type NegotiationStore interface {
	AcceptOffer(ctx context.Context, tripID, offerID string, now time.Time) (*AcceptResult, error)
}

// ErrStaleState is returned by NegotiationStore.AcceptOffer when the trip
// or the offer moved between the caller's read and the commit.
var ErrStaleState = errors.New("stale state")
