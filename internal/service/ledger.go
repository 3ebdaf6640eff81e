package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"joltcab/internal/config"
	"joltcab/internal/domain"
	"joltcab/internal/events"
	"joltcab/internal/redis"
	"joltcab/internal/repository"
)

// TripLedger owns the authoritative state of each trip. Every mutation is
// serialized per trip through the lock arena and guarded by the
// repository's conditional status update, so a cancel racing an
// acceptance resolves to exactly one winner.
type TripLedger struct {
	tripRepo  repository.TripRepository
	fare      *FareService
	demand    redis.DemandStoreInterface
	publisher EventPublisher
	locks     *TripLocks
	window    time.Duration
}

// NewTripLedger creates a new TripLedger.
func NewTripLedger(
	tripRepo repository.TripRepository,
	fare *FareService,
	demand redis.DemandStoreInterface,
	publisher EventPublisher,
	locks *TripLocks,
	cfg config.NegotiationConfig,
) *TripLedger {
	return &TripLedger{
		tripRepo:  tripRepo,
		fare:      fare,
		demand:    demand,
		publisher: publisher,
		locks:     locks,
		window:    cfg.WindowDuration,
	}
}

// CreateTripRequest contains the parameters for creating a trip.
type CreateTripRequest struct {
	RiderID        string
	Pickup         domain.Location
	Dropoff        domain.Location
	SuggestedPrice float64 // optional rider asking price
}

// Create computes the reference fare, persists the trip in negotiating
// state, and opens the negotiation window.
func (s *TripLedger) Create(ctx context.Context, req CreateTripRequest) (*domain.Trip, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	now := time.Now()
	trip := &domain.Trip{
		ID:                  uuid.New().String(),
		RiderID:             req.RiderID,
		Pickup:              req.Pickup,
		Dropoff:             req.Dropoff,
		Status:              domain.TripStatusNegotiating,
		ReferenceFare:       s.fare.Estimate(ctx, req.Pickup, req.Dropoff, now),
		SuggestedPrice:      req.SuggestedPrice,
		CreatedAt:           now,
		NegotiationDeadline: now.Add(s.window),
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}

	// Demand registration feeds future surge estimates; losing it only
	// skews pricing, so failures are logged and dropped.
	if s.demand != nil {
		if err := s.demand.Register(ctx, trip.Pickup.Latitude, trip.Pickup.Longitude); err != nil {
			log.Printf("demand register failed for trip %s: %v", trip.ID, err)
		}
	}

	s.publisher.Publish(trip.ID, events.KindTripStatusChanged, statusPayload(trip))

	return trip, nil
}

// Get retrieves a trip by ID.
func (s *TripLedger) Get(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	return s.tripRepo.GetByID(ctx, tripID)
}

// List retrieves trips matching the filter, newest first.
func (s *TripLedger) List(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	return s.tripRepo.List(ctx, filter)
}

// Transition moves a trip from an expected status to a new one under the
// per-trip serialization guard. Terminal targets are idempotent: if the
// trip is already in the requested terminal status the call succeeds
// without side effects. Any other mismatch returns ErrStaleState.
func (s *TripLedger) Transition(ctx context.Context, tripID string, from, to domain.TripStatus, update repository.TripUpdate) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if !domain.CanTransition(from, to) {
		return nil, ErrInvalidTransition
	}

	s.locks.Lock(tripID)
	defer s.locks.Unlock(tripID)

	return s.transitionLocked(ctx, tripID, from, to, update)
}

// transitionLocked applies a transition with the trip lock already held.
func (s *TripLedger) transitionLocked(ctx context.Context, tripID string, from, to domain.TripStatus, update repository.TripUpdate) (*domain.Trip, error) {
	ok, err := s.tripRepo.UpdateStatus(ctx, tripID, from, to, update)
	if err != nil {
		return nil, err
	}

	if !ok {
		trip, err := s.tripRepo.GetByID(ctx, tripID)
		if err != nil {
			return nil, err
		}
		if to.IsTerminal() && trip.Status == to {
			// At-least-once delivery from the gateway: repeating a
			// terminal transition is success, not a conflict.
			return trip, nil
		}
		return nil, ErrStaleState
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, trip)
	return trip, nil
}

// afterTransition runs the post-commit side effects: event fan-out and,
// for terminal trips, demand release and stream retirement.
func (s *TripLedger) afterTransition(ctx context.Context, trip *domain.Trip) {
	s.publisher.Publish(trip.ID, events.KindTripStatusChanged, statusPayload(trip))

	if !trip.Status.IsTerminal() {
		return
	}

	if s.demand != nil {
		if err := s.demand.Release(ctx, trip.Pickup.Latitude, trip.Pickup.Longitude); err != nil {
			log.Printf("demand release failed for trip %s: %v", trip.ID, err)
		}
	}
	s.publisher.CloseTrip(trip.ID)
}

// Start moves an accepted trip into started.
func (s *TripLedger) Start(ctx context.Context, tripID string) (*domain.Trip, error) {
	return s.Transition(ctx, tripID, domain.TripStatusAccepted, domain.TripStatusStarted,
		repository.TripUpdate{StartedAt: time.Now()})
}

// Complete moves a started trip into completed. Idempotent.
func (s *TripLedger) Complete(ctx context.Context, tripID string) (*domain.Trip, error) {
	return s.Transition(ctx, tripID, domain.TripStatusStarted, domain.TripStatusCompleted,
		repository.TripUpdate{CompletedAt: time.Now()})
}

// Cancel cancels a trip from whatever non-terminal status it is in.
// Idempotent when already cancelled; a completed trip cannot be
// cancelled and surfaces ErrStaleState.
func (s *TripLedger) Cancel(ctx context.Context, tripID, reason string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	s.locks.Lock(tripID)
	defer s.locks.Unlock(tripID)

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if trip.Status == domain.TripStatusCancelled {
		return trip, nil
	}
	if trip.Status == domain.TripStatusCompleted {
		return nil, ErrStaleState
	}

	return s.transitionLocked(ctx, tripID, trip.Status, domain.TripStatusCancelled,
		repository.TripUpdate{CancelReason: reason, CancelledAt: time.Now()})
}

// Rate records the rider's rating for a completed trip.
func (s *TripLedger) Rate(ctx context.Context, tripID string, rating float64, review string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != domain.TripStatusCompleted {
		return nil, ErrTripNotCompleted
	}

	if err := s.tripRepo.SetRating(ctx, tripID, rating, review); err != nil {
		return nil, err
	}

	trip.Rating = rating
	trip.Review = review
	return trip, nil
}

func (s *TripLedger) validateCreateRequest(req CreateTripRequest) error {
	if req.RiderID == "" {
		return ErrInvalidRiderID
	}
	if !isValidLatitude(req.Pickup.Latitude) || !isValidLongitude(req.Pickup.Longitude) {
		return ErrInvalidPickupLocation
	}
	if !isValidLatitude(req.Dropoff.Latitude) || !isValidLongitude(req.Dropoff.Longitude) {
		return ErrInvalidDropoffLocation
	}
	if req.SuggestedPrice < 0 {
		return ErrInvalidPrice
	}
	return nil
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
