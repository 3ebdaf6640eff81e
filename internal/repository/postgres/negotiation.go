package postgres

import (
	"context"
	"database/sql"
	"time"

	"joltcab/internal/domain"
	"joltcab/internal/repository"
)

// NegotiationStore is a PostgreSQL implementation of
// repository.NegotiationStore. The accept path runs in a single
// transaction so the offer, its rivals, and the trip commit together.
type NegotiationStore struct {
	db *sql.DB
}

// NewNegotiationStore creates a new PostgreSQL negotiation store.
func NewNegotiationStore(db *sql.DB) *NegotiationStore {
	return &NegotiationStore{db: db}
}

// AcceptOffer marks the offer accepted, supersedes every other pending
// offer on the trip, and moves the trip to accepted, atomically. The
// conditional updates double as the cross-process concurrency guard: if
// either the offer or the trip has moved, the transaction rolls back and
// the caller gets repository.ErrStaleState.
func (s *NegotiationStore) AcceptOffer(ctx context.Context, tripID, offerID string, now time.Time) (*repository.AcceptResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txOffers := NewOfferRepositoryWithTx(tx)
	txTrips := NewTripRepositoryWithTx(tx)

	var ok bool
	ok, err = txOffers.UpdateState(ctx, offerID, domain.OfferStatePending, domain.OfferStateAccepted, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		err = repository.ErrStaleState
		return nil, err
	}

	var superseded []*domain.Offer
	superseded, err = txOffers.supersedePending(ctx, tripID, offerID, now)
	if err != nil {
		return nil, err
	}

	ok, err = txTrips.UpdateStatus(ctx, tripID,
		domain.TripStatusNegotiating, domain.TripStatusAccepted,
		repository.TripUpdate{AcceptedOfferID: offerID})
	if err != nil {
		return nil, err
	}
	if !ok {
		err = repository.ErrStaleState
		return nil, err
	}

	var offer *domain.Offer
	offer, err = txOffers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	var trip *domain.Trip
	trip, err = txTrips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &repository.AcceptResult{
		Trip:       trip,
		Offer:      offer,
		Superseded: superseded,
	}, nil
}
