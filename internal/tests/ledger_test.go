package tests

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"joltcab/internal/domain"
	"joltcab/internal/events"
	"joltcab/internal/repository"
	"joltcab/internal/service"
)

// ──────────────────────────────────────────────
// 2. TRIP LEDGER
// ──────────────────────────────────────────────

func TestLedger_CreateOpensNegotiation(t *testing.T) {
	t.Parallel()

	h := newHarness(testNegotiationConfig())
	ctx := context.Background()

	before := time.Now()
	trip, err := h.ledger.Create(ctx, service.CreateTripRequest{
		RiderID:        "rider-1",
		Pickup:         sfPickup,
		Dropoff:        sfDropoff,
		SuggestedPrice: 9.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trip.Status != domain.TripStatusNegotiating {
		t.Errorf("expected negotiating, got %s", trip.Status)
	}
	if trip.ID == "" {
		t.Error("expected a generated trip ID")
	}
	if trip.ReferenceFare.FinalPrice <= 0 {
		t.Errorf("expected a priced reference fare, got %f", trip.ReferenceFare.FinalPrice)
	}

	wantDeadline := before.Add(2 * time.Minute)
	if trip.NegotiationDeadline.Before(wantDeadline) || trip.NegotiationDeadline.After(wantDeadline.Add(time.Second)) {
		t.Errorf("deadline %v not near created+window", trip.NegotiationDeadline)
	}

	if atomic.LoadInt32(&h.demand.RegisterCallCount) != 1 {
		t.Error("expected demand registration on create")
	}
	if len(h.publisher.EventsOfKind(events.KindTripStatusChanged)) != 1 {
		t.Error("expected one status event on create")
	}

	if h.store.GetTrip(trip.ID) == nil {
		t.Error("trip not persisted")
	}
}

func TestLedger_CreateValidation(t *testing.T) {
	t.Parallel()

	h := newHarness(testNegotiationConfig())
	ctx := context.Background()

	cases := []struct {
		name string
		req  service.CreateTripRequest
		want error
	}{
		{"empty rider", service.CreateTripRequest{Pickup: sfPickup, Dropoff: sfDropoff}, service.ErrInvalidRiderID},
		{"bad pickup latitude", service.CreateTripRequest{RiderID: "r", Pickup: domain.Location{Latitude: 91}, Dropoff: sfDropoff}, service.ErrInvalidPickupLocation},
		{"bad dropoff longitude", service.CreateTripRequest{RiderID: "r", Pickup: sfPickup, Dropoff: domain.Location{Longitude: -181}}, service.ErrInvalidDropoffLocation},
		{"negative suggested price", service.CreateTripRequest{RiderID: "r", Pickup: sfPickup, Dropoff: sfDropoff, SuggestedPrice: -1}, service.ErrInvalidPrice},
	}

	for _, tc := range cases {
		if _, err := h.ledger.Create(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestLedger_CreateSurvivesDemandFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(testNegotiationConfig())
	h.demand.RegisterError = errors.New("redis down")

	trip, err := h.ledger.Create(context.Background(), service.CreateTripRequest{
		RiderID: "rider-1",
		Pickup:  sfPickup,
		Dropoff: sfDropoff,
	})
	if err != nil {
		t.Fatalf("demand failure must not block creation: %v", err)
	}
	if trip.Status != domain.TripStatusNegotiating {
		t.Errorf("expected negotiating, got %s", trip.Status)
	}
}

func TestLedger_StartCompleteFlow(t *testing.T) {
	t.Parallel()

	h := newHarness(testNegotiationConfig())
	ctx := context.Background()
	h.store.AddTrip(&domain.Trip{ID: "trip-1", RiderID: "rider-1", Status: domain.TripStatusAccepted})

	trip, err := h.ledger.Start(ctx, "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Status != domain.TripStatusStarted {
		t.Errorf("expected started, got %s", trip.Status)
	}
	if trip.StartedAt.IsZero() {
		t.Error("expected StartedAt to be stamped")
	}

	trip, err = h.ledger.Complete(ctx, "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Status != domain.TripStatusCompleted {
		t.Errorf("expected completed, got %s", trip.Status)
	}
	if trip.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be stamped")
	}

	// Terminal side effects: demand released, stream retired.
	if atomic.LoadInt32(&h.demand.ReleaseCallCount) != 1 {
		t.Error("expected demand release on completion")
	}
	if !h.publisher.Closed("trip-1") {
		t.Error("expected event stream to be retired")
	}
}

func TestLedger_InvalidTransition(t *testing.T) {
	t.Parallel()

	h := newHarness(testNegotiationConfig())
	h.addNegotiatingTrip("trip-1", time.Now().Add(time.Minute))

	_, err := h.ledger.Transition(context.Background(), "trip-1",
		domain.TripStatusNegotiating, domain.TripStatusCompleted, repository.TripUpdate{})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("got %v, want ErrInvalidTransition", err)
	}
}

func TestLedger_StaleState(t *testing.T) {
	t.Parallel()

	h := newHarness(testNegotiationConfig())
	h.addNegotiatingTrip("trip-1", time.Now().Add(time.Minute))

	// Start expects accepted; the trip is still negotiating.
	_, err := h.ledger.Start(context.Background(), "trip-1")
	if !errors.Is(err, service.ErrStaleState) {
		t.Errorf("got %v, want ErrStaleState", err)
	}
	if got := h.store.GetTrip("trip-1").Status; got != domain.TripStatusNegotiating {
		t.Errorf("losing transition must not mutate, status %s", got)
	}
}

func TestLedger_TerminalTransitionIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(testNegotiationConfig())
	ctx := context.Background()
	h.store.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusStarted})

	if _, err := h.ledger.Complete(ctx, "trip-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Gateway retry repeats the same terminal transition.
	trip, err := h.ledger.Complete(ctx, "trip-1")
	if err != nil {
		t.Fatalf("repeated completion must succeed: %v", err)
	}
	if trip.Status != domain.TripStatusCompleted {
		t.Errorf("expected completed, got %s", trip.Status)
	}

	// Only the first commit fans out.
	if n := len(h.publisher.EventsOfKind(events.KindTripStatusChanged)); n != 1 {
		t.Errorf("expected 1 status event, got %d", n)
	}
}

func TestLedger_CancelFromNegotiating(t *testing.T) {
	t.Parallel()

	h := newHarness(testNegotiationConfig())
	h.addNegotiatingTrip("trip-1", time.Now().Add(time.Minute))

	trip, err := h.ledger.Cancel(context.Background(), "trip-1", "rider_changed_mind")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Status != domain.TripStatusCancelled {
		t.Errorf("expected cancelled, got %s", trip.Status)
	}
	if trip.CancelReason != "rider_changed_mind" {
		t.Errorf("expected cancel reason to be stored, got %q", trip.CancelReason)
	}
	if !h.publisher.Closed("trip-1") {
		t.Error("expected event stream to be retired")
	}
}

func TestLedger_CancelIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(testNegotiationConfig())
	h.store.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusCancelled, CancelReason: "earlier"})

	trip, err := h.ledger.Cancel(context.Background(), "trip-1", "again")
	if err != nil {
		t.Fatalf("repeated cancel must succeed: %v", err)
	}
	if trip.CancelReason != "earlier" {
		t.Errorf("repeat must not overwrite the original reason, got %q", trip.CancelReason)
	}
}

func TestLedger_CancelCompletedFails(t *testing.T) {
	t.Parallel()

	h := newHarness(testNegotiationConfig())
	h.store.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusCompleted})

	_, err := h.ledger.Cancel(context.Background(), "trip-1", "too late")
	if !errors.Is(err, service.ErrStaleState) {
		t.Errorf("got %v, want ErrStaleState", err)
	}
}

func TestLedger_Rate(t *testing.T) {
	t.Parallel()

	h := newHarness(testNegotiationConfig())
	ctx := context.Background()
	h.store.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusCompleted})

	trip, err := h.ledger.Rate(ctx, "trip-1", 4.5, "smooth ride")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Rating != 4.5 || trip.Review != "smooth ride" {
		t.Errorf("rating not stored: %f %q", trip.Rating, trip.Review)
	}

	if _, err := h.ledger.Rate(ctx, "trip-1", 6, ""); !errors.Is(err, service.ErrInvalidRating) {
		t.Errorf("got %v, want ErrInvalidRating", err)
	}

	h.store.AddTrip(&domain.Trip{ID: "trip-2", Status: domain.TripStatusStarted})
	if _, err := h.ledger.Rate(ctx, "trip-2", 5, ""); !errors.Is(err, service.ErrTripNotCompleted) {
		t.Errorf("got %v, want ErrTripNotCompleted", err)
	}
}

func TestLedger_GetUnknownTrip(t *testing.T) {
	t.Parallel()

	h := newHarness(testNegotiationConfig())
	_, err := h.ledger.Get(context.Background(), "nope")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestLedger_ListFiltersByRider(t *testing.T) {
	t.Parallel()

	h := newHarness(testNegotiationConfig())
	h.store.AddTrip(&domain.Trip{ID: "trip-1", RiderID: "rider-1", Status: domain.TripStatusCompleted})
	h.store.AddTrip(&domain.Trip{ID: "trip-2", RiderID: "rider-2", Status: domain.TripStatusCompleted})
	h.store.AddTrip(&domain.Trip{ID: "trip-3", RiderID: "rider-1", Status: domain.TripStatusCancelled})

	trips, err := h.ledger.List(context.Background(), repository.TripFilter{RiderID: "rider-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trips) != 2 {
		t.Errorf("expected 2 trips for rider-1, got %d", len(trips))
	}

	trips, err = h.ledger.List(context.Background(), repository.TripFilter{RiderID: "rider-1", Status: domain.TripStatusCancelled})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trips) != 1 || trips[0].ID != "trip-3" {
		t.Errorf("status filter failed: %+v", trips)
	}
}
