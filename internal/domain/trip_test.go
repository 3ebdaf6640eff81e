package domain

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to TripStatus
		want     bool
	}{
		{TripStatusRequested, TripStatusNegotiating, true},
		{TripStatusNegotiating, TripStatusAccepted, true},
		{TripStatusAccepted, TripStatusStarted, true},
		{TripStatusStarted, TripStatusCompleted, true},

		// Cancellation from any non-terminal status.
		{TripStatusRequested, TripStatusCancelled, true},
		{TripStatusNegotiating, TripStatusCancelled, true},
		{TripStatusAccepted, TripStatusCancelled, true},
		{TripStatusStarted, TripStatusCancelled, true},

		// No skipping forward, no moving back.
		{TripStatusNegotiating, TripStatusStarted, false},
		{TripStatusNegotiating, TripStatusCompleted, false},
		{TripStatusAccepted, TripStatusNegotiating, false},
		{TripStatusStarted, TripStatusAccepted, false},

		// Terminal states never move.
		{TripStatusCompleted, TripStatusCancelled, false},
		{TripStatusCancelled, TripStatusCancelled, false},
		{TripStatusCancelled, TripStatusAccepted, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestOfferStateTerminal(t *testing.T) {
	if OfferStatePending.IsTerminal() {
		t.Error("pending must not be terminal")
	}
	for _, s := range []OfferState{OfferStateAccepted, OfferStateRejected, OfferStateExpired, OfferStateSuperseded} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}
