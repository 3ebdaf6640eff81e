package tests

import (
	"time"

	"joltcab/internal/config"
	"joltcab/internal/domain"
	"joltcab/internal/service"
)

func testFareConfig() config.FareConfig {
	return config.FareConfig{
		FlagFall:    5.0,
		PerKmRate:   2.5,
		AvgSpeedKmh: 30.0,
		MaxSurge:    3.0,
	}
}

func testNegotiationConfig() config.NegotiationConfig {
	return config.NegotiationConfig{
		WindowDuration: 2 * time.Minute,
		OfferTTL:       time.Minute,
		SweepInterval:  time.Second,
	}
}

// harness wires the ledger and negotiation service over the in-memory
// store, sharing one lock arena the way main does.
type harness struct {
	store       *MemoryStore
	demand      *MockDemandCounter
	publisher   *MockPublisher
	ledger      *service.TripLedger
	negotiation *service.NegotiationService
}

func newHarness(cfg config.NegotiationConfig) *harness {
	store := NewMemoryStore()
	demand := NewMockDemandCounter()
	publisher := NewMockPublisher()

	factors := service.NewContextFactors(demand,
		service.StaticFactorProvider{Value: 1.0},
		service.StaticFactorProvider{Value: 1.0})
	fare := service.NewFareService(testFareConfig(), factors)
	locks := service.NewTripLocks()

	ledger := service.NewTripLedger(store.TripRepo(), fare, demand, publisher, locks, cfg)
	negotiation := service.NewNegotiationService(ledger, store.OfferRepo(), store, publisher, locks, cfg)

	return &harness{
		store:       store,
		demand:      demand,
		publisher:   publisher,
		ledger:      ledger,
		negotiation: negotiation,
	}
}

// addNegotiatingTrip seeds a trip in negotiating state with the given
// deadline, bypassing Create.
func (h *harness) addNegotiatingTrip(id string, deadline time.Time) *domain.Trip {
	trip := &domain.Trip{
		ID:                  id,
		RiderID:             "rider-1",
		Pickup:              domain.Location{Latitude: 37.7749, Longitude: -122.4194},
		Dropoff:             domain.Location{Latitude: 37.7849, Longitude: -122.4094},
		Status:              domain.TripStatusNegotiating,
		CreatedAt:           time.Now(),
		NegotiationDeadline: deadline,
	}
	h.store.AddTrip(trip)
	return trip
}

// addPendingOffer seeds a pending offer on a trip.
func (h *harness) addPendingOffer(id, tripID, driverID string, price float64, createdAt, expiresAt time.Time) *domain.Offer {
	offer := &domain.Offer{
		ID:        id,
		TripID:    tripID,
		DriverID:  driverID,
		Price:     price,
		State:     domain.OfferStatePending,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
	h.store.AddOffer(offer)
	return offer
}
