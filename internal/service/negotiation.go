package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"joltcab/internal/config"
	"joltcab/internal/domain"
	"joltcab/internal/events"
	"joltcab/internal/repository"
)

// NegotiationService manages the offer lifecycle of a trip: admission
// while the window is open, exactly-once acceptance, rejection, and the
// background sweep that expires offers and times out windows.
type NegotiationService struct {
	ledger    *TripLedger
	offerRepo repository.OfferRepository
	store     repository.NegotiationStore
	publisher EventPublisher
	locks     *TripLocks
	cfg       config.NegotiationConfig
}

// NewNegotiationService creates a new NegotiationService.
func NewNegotiationService(
	ledger *TripLedger,
	offerRepo repository.OfferRepository,
	store repository.NegotiationStore,
	publisher EventPublisher,
	locks *TripLocks,
	cfg config.NegotiationConfig,
) *NegotiationService {
	return &NegotiationService{
		ledger:    ledger,
		offerRepo: offerRepo,
		store:     store,
		publisher: publisher,
		locks:     locks,
		cfg:       cfg,
	}
}

// SubmitOfferRequest contains the parameters for submitting an offer.
type SubmitOfferRequest struct {
	TripID       string
	DriverID     string
	DriverName   string
	DriverRating float64
	Price        float64
	Message      string
}

// SubmitOffer admits a driver's offer against an open negotiation
// window. A driver may hold only one live offer per trip: resubmitting
// supersedes the previous pending offer, so only the latest stands.
func (s *NegotiationService) SubmitOffer(ctx context.Context, req SubmitOfferRequest) (*domain.Offer, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if req.Price <= 0 {
		return nil, ErrInvalidPrice
	}

	s.locks.Lock(req.TripID)
	defer s.locks.Unlock(req.TripID)

	trip, err := s.ledger.Get(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if trip.Status != domain.TripStatusNegotiating || now.After(trip.NegotiationDeadline) {
		return nil, ErrWindowClosed
	}

	prior, err := s.offerRepo.GetPendingByDriver(ctx, req.TripID, req.DriverID)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		if _, err := s.offerRepo.UpdateState(ctx, prior.ID,
			domain.OfferStatePending, domain.OfferStateSuperseded, now); err != nil {
			return nil, err
		}
	}

	offer := &domain.Offer{
		ID:           uuid.New().String(),
		TripID:       req.TripID,
		DriverID:     req.DriverID,
		DriverName:   req.DriverName,
		DriverRating: req.DriverRating,
		Price:        req.Price,
		Message:      req.Message,
		State:        domain.OfferStatePending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.OfferTTL),
	}

	if err := s.offerRepo.Create(ctx, offer); err != nil {
		return nil, err
	}

	s.publisher.Publish(req.TripID, events.KindOfferSubmitted, offerPayload(offer))

	return offer, nil
}

// AcceptOffer resolves the negotiation to exactly one winner. Under the
// per-trip lock it validates the offer is pending and unexpired and the
// trip still negotiating, then commits the offer acceptance, the
// supersession of every rival pending offer, and the trip transition as
// one indivisible unit. A racing acceptor observes ErrAlreadyAccepted
// and performs no mutation.
func (s *NegotiationService) AcceptOffer(ctx context.Context, tripID, offerID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if offerID == "" {
		return nil, ErrInvalidOfferID
	}

	s.locks.Lock(tripID)
	defer s.locks.Unlock(tripID)

	result, err := s.acceptLocked(ctx, tripID, offerID, time.Now())
	if err != nil {
		return nil, err
	}

	s.publishAccepted(result)
	return result.Trip, nil
}

// acceptLocked validates and commits an acceptance with the trip lock
// held. Callers publish the resulting events after it returns.
func (s *NegotiationService) acceptLocked(ctx context.Context, tripID, offerID string, now time.Time) (*repository.AcceptResult, error) {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.TripID != tripID {
		return nil, repository.ErrNotFound
	}

	trip, err := s.ledger.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if trip.Status != domain.TripStatusNegotiating {
		if trip.AcceptedOfferID != "" {
			return nil, ErrAlreadyAccepted
		}
		return nil, ErrWindowClosed
	}

	switch offer.State {
	case domain.OfferStatePending:
	case domain.OfferStateAccepted:
		return nil, ErrAlreadyAccepted
	case domain.OfferStateExpired:
		return nil, ErrOfferExpired
	default:
		return nil, ErrOfferNotPending
	}

	// Expiry is evaluated here, at acceptance time, not only by the
	// sweep: an offer past its deadline cannot win even if the sweeper
	// has not caught up with it yet.
	if offer.IsExpired(now) {
		if ok, err := s.offerRepo.UpdateState(ctx, offer.ID,
			domain.OfferStatePending, domain.OfferStateExpired, now); err == nil && ok {
			offer.State = domain.OfferStateExpired
			s.publisher.Publish(tripID, events.KindOfferExpired, offerPayload(offer))
		}
		return nil, ErrOfferExpired
	}

	result, err := s.store.AcceptOffer(ctx, tripID, offerID, now)
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, ErrAlreadyAccepted
		}
		return nil, err
	}
	return result, nil
}

func (s *NegotiationService) publishAccepted(result *repository.AcceptResult) {
	s.publisher.Publish(result.Trip.ID, events.KindOfferAccepted, offerPayload(result.Offer))
	s.publisher.Publish(result.Trip.ID, events.KindTripStatusChanged, statusPayload(result.Trip))
}

// RejectOffer moves a pending offer to rejected.
func (s *NegotiationService) RejectOffer(ctx context.Context, offerID string) (*domain.Offer, error) {
	if offerID == "" {
		return nil, ErrInvalidOfferID
	}

	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(offer.TripID)
	defer s.locks.Unlock(offer.TripID)

	now := time.Now()
	ok, err := s.offerRepo.UpdateState(ctx, offerID,
		domain.OfferStatePending, domain.OfferStateRejected, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Re-read to report what terminal state won.
		offer, err = s.offerRepo.GetByID(ctx, offerID)
		if err != nil {
			return nil, err
		}
		switch offer.State {
		case domain.OfferStateRejected:
			return offer, nil // idempotent
		case domain.OfferStateAccepted:
			return nil, ErrAlreadyAccepted
		case domain.OfferStateExpired:
			return nil, ErrOfferExpired
		default:
			return nil, ErrOfferNotPending
		}
	}

	offer.State = domain.OfferStateRejected
	offer.RespondedAt = now
	s.publisher.Publish(offer.TripID, events.KindOfferRejected, offerPayload(offer))

	return offer, nil
}

// Offers retrieves all offers for a trip, oldest first. Used together
// with Get for reconnect resynchronization.
func (s *NegotiationService) Offers(ctx context.Context, tripID string) ([]*domain.Offer, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	return s.offerRepo.ListByTrip(ctx, tripID)
}

// Run drives the sweep on the configured tick until the context is done.
func (s *NegotiationService) Run(ctx context.Context) {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, time.Now())
		}
	}
}

// Sweep expires pending offers past their deadline, then settles trips
// whose negotiation window has elapsed: auto-accept of the cheapest live
// offer when the policy is enabled, otherwise cancellation with reason
// negotiation_timeout. Races against concurrent riders are expected;
// stale-state outcomes are logged and dropped.
func (s *NegotiationService) Sweep(ctx context.Context, now time.Time) {
	s.expireOffers(ctx, now)
	s.settleExpiredWindows(ctx, now)
}

func (s *NegotiationService) expireOffers(ctx context.Context, now time.Time) {
	stale, err := s.offerRepo.ListExpiredPending(ctx, now)
	if err != nil {
		log.Printf("sweep: listing expired offers: %v", err)
		return
	}

	for _, offer := range stale {
		s.locks.Lock(offer.TripID)
		ok, err := s.offerRepo.UpdateState(ctx, offer.ID,
			domain.OfferStatePending, domain.OfferStateExpired, now)
		s.locks.Unlock(offer.TripID)
		if err != nil {
			log.Printf("sweep: expiring offer %s: %v", offer.ID, err)
			continue
		}
		if ok {
			offer.State = domain.OfferStateExpired
			offer.RespondedAt = now
			s.publisher.Publish(offer.TripID, events.KindOfferExpired, offerPayload(offer))
		}
	}
}

func (s *NegotiationService) settleExpiredWindows(ctx context.Context, now time.Time) {
	trips, err := s.ledger.tripRepo.ListNegotiationExpired(ctx, now)
	if err != nil {
		log.Printf("sweep: listing expired windows: %v", err)
		return
	}

	for _, trip := range trips {
		if s.cfg.AutoAccept {
			if s.autoAccept(ctx, trip, now) {
				continue
			}
		}

		_, err := s.ledger.Cancel(ctx, trip.ID, domain.CancelReasonNegotiationTimeout)
		if err != nil && !errors.Is(err, ErrStaleState) {
			log.Printf("sweep: cancelling trip %s: %v", trip.ID, err)
		}
	}
}

// autoAccept tries to accept the lowest-priced pending unexpired offer,
// ties broken by earliest submission. Returns true when an offer won.
func (s *NegotiationService) autoAccept(ctx context.Context, trip *domain.Trip, now time.Time) bool {
	offers, err := s.offerRepo.ListByTrip(ctx, trip.ID)
	if err != nil {
		log.Printf("sweep: listing offers for trip %s: %v", trip.ID, err)
		return false
	}

	live := offers[:0]
	for _, offer := range offers {
		if offer.State == domain.OfferStatePending && !offer.IsExpired(now) {
			live = append(live, offer)
		}
	}
	if len(live) == 0 {
		return false
	}

	sort.Slice(live, func(i, j int) bool {
		if live[i].Price != live[j].Price {
			return live[i].Price < live[j].Price
		}
		return live[i].CreatedAt.Before(live[j].CreatedAt)
	})

	s.locks.Lock(trip.ID)
	result, err := s.acceptLocked(ctx, trip.ID, live[0].ID, now)
	s.locks.Unlock(trip.ID)
	if err != nil {
		// A rider's acceptance or cancellation beat the sweeper; fine.
		if !errors.Is(err, ErrAlreadyAccepted) && !errors.Is(err, ErrWindowClosed) {
			log.Printf("sweep: auto-accept on trip %s: %v", trip.ID, err)
		}
		return errors.Is(err, ErrAlreadyAccepted)
	}

	s.publishAccepted(result)
	return true
}
