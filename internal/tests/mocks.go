package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"joltcab/internal/domain"
	"joltcab/internal/events"
	"joltcab/internal/repository"
)

// ──────────────────────────────────────────────
// IN-MEMORY STORE
// ──────────────────────────────────────────────

// MemoryStore backs the trip and offer repositories plus the negotiation
// store with one shared mutex, so the accept path is atomic exactly the
// way the transactional implementation is.
type MemoryStore struct {
	mu     sync.RWMutex
	trips  map[string]*domain.Trip
	offers map[string]*domain.Offer

	// Counters for verification
	TripCreateCallCount   int32
	UpdateStatusCallCount int32
	OfferCreateCallCount  int32
	AcceptCallCount       int32

	// Error injection
	TripCreateError   error
	UpdateStatusError error
	OfferCreateError  error
	AcceptError       error
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trips:  make(map[string]*domain.Trip),
		offers: make(map[string]*domain.Offer),
	}
}

// TripRepo returns the store's TripRepository view.
func (m *MemoryStore) TripRepo() repository.TripRepository {
	return memoryTripRepo{m}
}

// OfferRepo returns the store's OfferRepository view.
func (m *MemoryStore) OfferRepo() repository.OfferRepository {
	return memoryOfferRepo{m}
}

// AddTrip adds a trip to the store.
func (m *MemoryStore) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *trip
	m.trips[trip.ID] = &copy
}

// AddOffer adds an offer to the store.
func (m *MemoryStore) AddOffer(offer *domain.Offer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *offer
	m.offers[offer.ID] = &copy
}

// GetTrip returns a copy of the trip for test assertions.
func (m *MemoryStore) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil
	}
	copy := *trip
	return &copy
}

// GetOffer returns a copy of the offer for test assertions.
func (m *MemoryStore) GetOffer(id string) *domain.Offer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	offer, ok := m.offers[id]
	if !ok {
		return nil
	}
	copy := *offer
	return &copy
}

// CountOffersInState counts the trip's offers in the given state.
func (m *MemoryStore) CountOffersInState(tripID string, state domain.OfferState) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, o := range m.offers {
		if o.TripID == tripID && o.State == state {
			n++
		}
	}
	return n
}

// AcceptOffer implements repository.NegotiationStore. All checks and
// mutations happen under one write lock; a loser observes
// repository.ErrStaleState and mutates nothing.
func (m *MemoryStore) AcceptOffer(ctx context.Context, tripID, offerID string, now time.Time) (*repository.AcceptResult, error) {
	atomic.AddInt32(&m.AcceptCallCount, 1)
	if m.AcceptError != nil {
		return nil, m.AcceptError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	offer, ok := m.offers[offerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	// Validate both sides before touching anything.
	if offer.State != domain.OfferStatePending {
		return nil, repository.ErrStaleState
	}
	if trip.Status != domain.TripStatusNegotiating {
		return nil, repository.ErrStaleState
	}

	offer.State = domain.OfferStateAccepted
	offer.RespondedAt = now

	var superseded []*domain.Offer
	for _, o := range m.offers {
		if o.TripID == tripID && o.ID != offerID && o.State == domain.OfferStatePending {
			o.State = domain.OfferStateSuperseded
			o.RespondedAt = now
			copy := *o
			superseded = append(superseded, &copy)
		}
	}

	trip.Status = domain.TripStatusAccepted
	trip.AcceptedOfferID = offerID

	tripCopy := *trip
	offerCopy := *offer
	return &repository.AcceptResult{
		Trip:       &tripCopy,
		Offer:      &offerCopy,
		Superseded: superseded,
	}, nil
}

// memoryTripRepo is the TripRepository view over a MemoryStore.
type memoryTripRepo struct {
	s *MemoryStore
}

func (r memoryTripRepo) Create(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&r.s.TripCreateCallCount, 1)
	if r.s.TripCreateError != nil {
		return r.s.TripCreateError
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copy := *trip
	r.s.trips[trip.ID] = &copy
	return nil
}

func (r memoryTripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	trip, ok := r.s.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *trip
	return &copy, nil
}

func (r memoryTripRepo) List(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]*domain.Trip, 0, len(r.s.trips))
	for _, trip := range r.s.trips {
		if filter.RiderID != "" && trip.RiderID != filter.RiderID {
			continue
		}
		if filter.Status != "" && trip.Status != filter.Status {
			continue
		}
		copy := *trip
		result = append(result, &copy)
	}
	return result, nil
}

func (r memoryTripRepo) UpdateStatus(ctx context.Context, id string, from, to domain.TripStatus, update repository.TripUpdate) (bool, error) {
	atomic.AddInt32(&r.s.UpdateStatusCallCount, 1)
	if r.s.UpdateStatusError != nil {
		return false, r.s.UpdateStatusError
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	trip, ok := r.s.trips[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if trip.Status != from {
		return false, nil
	}
	trip.Status = to
	if update.AcceptedOfferID != "" {
		trip.AcceptedOfferID = update.AcceptedOfferID
	}
	if update.CancelReason != "" {
		trip.CancelReason = update.CancelReason
	}
	if !update.StartedAt.IsZero() {
		trip.StartedAt = update.StartedAt
	}
	if !update.CompletedAt.IsZero() {
		trip.CompletedAt = update.CompletedAt
	}
	if !update.CancelledAt.IsZero() {
		trip.CancelledAt = update.CancelledAt
	}
	return true, nil
}

func (r memoryTripRepo) SetRating(ctx context.Context, id string, rating float64, review string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	trip, ok := r.s.trips[id]
	if !ok {
		return repository.ErrNotFound
	}
	trip.Rating = rating
	trip.Review = review
	return nil
}

func (r memoryTripRepo) ListNegotiationExpired(ctx context.Context, now time.Time) ([]*domain.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []*domain.Trip
	for _, trip := range r.s.trips {
		if trip.Status == domain.TripStatusNegotiating && now.After(trip.NegotiationDeadline) {
			copy := *trip
			result = append(result, &copy)
		}
	}
	return result, nil
}

// memoryOfferRepo is the OfferRepository view over a MemoryStore.
type memoryOfferRepo struct {
	s *MemoryStore
}

func (r memoryOfferRepo) Create(ctx context.Context, offer *domain.Offer) error {
	atomic.AddInt32(&r.s.OfferCreateCallCount, 1)
	if r.s.OfferCreateError != nil {
		return r.s.OfferCreateError
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copy := *offer
	r.s.offers[offer.ID] = &copy
	return nil
}

func (r memoryOfferRepo) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	offer, ok := r.s.offers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *offer
	return &copy, nil
}

func (r memoryOfferRepo) ListByTrip(ctx context.Context, tripID string) ([]*domain.Offer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []*domain.Offer
	for _, offer := range r.s.offers {
		if offer.TripID == tripID {
			copy := *offer
			result = append(result, &copy)
		}
	}
	// Oldest first, matching the SQL ordering.
	for i := 1; i < len(result); i++ {
		for j := i; j > 0 && result[j].CreatedAt.Before(result[j-1].CreatedAt); j-- {
			result[j], result[j-1] = result[j-1], result[j]
		}
	}
	return result, nil
}

func (r memoryOfferRepo) GetPendingByDriver(ctx context.Context, tripID, driverID string) (*domain.Offer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, offer := range r.s.offers {
		if offer.TripID == tripID && offer.DriverID == driverID && offer.State == domain.OfferStatePending {
			copy := *offer
			return &copy, nil
		}
	}
	return nil, nil
}

func (r memoryOfferRepo) UpdateState(ctx context.Context, id string, from, to domain.OfferState, respondedAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	offer, ok := r.s.offers[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if offer.State != from {
		return false, nil
	}
	offer.State = to
	offer.RespondedAt = respondedAt
	return true, nil
}

func (r memoryOfferRepo) ListExpiredPending(ctx context.Context, now time.Time) ([]*domain.Offer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []*domain.Offer
	for _, offer := range r.s.offers {
		if offer.State == domain.OfferStatePending && now.After(offer.ExpiresAt) {
			copy := *offer
			result = append(result, &copy)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// PublishedEvent records one Publish call.
type PublishedEvent struct {
	TripID  string
	Kind    events.Kind
	Payload map[string]interface{}
}

// MockPublisher is a mock implementation of the event publisher boundary.
type MockPublisher struct {
	mu        sync.Mutex
	published []PublishedEvent
	closed    map[string]bool
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{closed: make(map[string]bool)}
}

func (m *MockPublisher) Publish(tripID string, kind events.Kind, payload map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, PublishedEvent{TripID: tripID, Kind: kind, Payload: payload})
}

func (m *MockPublisher) CloseTrip(tripID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed[tripID] = true
}

// Events returns a copy of everything published so far.
func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedEvent, len(m.published))
	copy(out, m.published)
	return out
}

// EventsOfKind returns the published events of one kind.
func (m *MockPublisher) EventsOfKind(kind events.Kind) []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PublishedEvent
	for _, ev := range m.published {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Closed reports whether CloseTrip was called for the trip.
func (m *MockPublisher) Closed(tripID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed[tripID]
}

// ──────────────────────────────────────────────
// MOCK DEMAND COUNTER
// ──────────────────────────────────────────────

// MockDemandCounter is a mock implementation of the demand store.
type MockDemandCounter struct {
	mu    sync.Mutex
	count int

	// Counters for verification
	RegisterCallCount int32
	ReleaseCallCount  int32

	// Error injection
	RegisterError error
	ReleaseError  error
	CountError    error
}

// NewMockDemandCounter creates a new mock demand counter.
func NewMockDemandCounter() *MockDemandCounter {
	return &MockDemandCounter{}
}

// SetCount sets the value Count will report.
func (m *MockDemandCounter) SetCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count = n
}

func (m *MockDemandCounter) Register(ctx context.Context, lat, lng float64) error {
	atomic.AddInt32(&m.RegisterCallCount, 1)
	if m.RegisterError != nil {
		return m.RegisterError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	return nil
}

func (m *MockDemandCounter) Release(ctx context.Context, lat, lng float64) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	if m.ReleaseError != nil {
		return m.ReleaseError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count > 0 {
		m.count--
	}
	return nil
}

func (m *MockDemandCounter) Count(ctx context.Context, lat, lng float64) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, nil
}

// ──────────────────────────────────────────────
// MOCK FACTOR PROVIDER
// ──────────────────────────────────────────────

// MockFactorProvider returns a fixed weight or a fixed error.
type MockFactorProvider struct {
	Value float64
	Err   error
}

func (p MockFactorProvider) Factor(ctx context.Context, lat, lng float64, t time.Time) (float64, error) {
	if p.Err != nil {
		return 0, p.Err
	}
	return p.Value, nil
}
