package domain

import "time"

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusRequested   TripStatus = "requested"
	TripStatusNegotiating TripStatus = "negotiating"
	TripStatusAccepted    TripStatus = "accepted"
	TripStatusStarted     TripStatus = "started"
	TripStatusCompleted   TripStatus = "completed"
	TripStatusCancelled   TripStatus = "cancelled"
)

// CancelReasonNegotiationTimeout marks trips cancelled by the sweeper when
// the negotiation deadline elapses without an accepted offer.
const CancelReasonNegotiationTimeout = "negotiation_timeout"

// IsTerminal reports whether no further transition is allowed from s.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// CanTransition reports whether the forward-only trip state machine allows
// moving from one status to another. Cancellation is reachable from every
// non-terminal status.
func CanTransition(from, to TripStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == TripStatusCancelled {
		return true
	}
	switch from {
	case TripStatusRequested:
		return to == TripStatusNegotiating
	case TripStatusNegotiating:
		return to == TripStatusAccepted
	case TripStatusAccepted:
		return to == TripStatusStarted
	case TripStatusStarted:
		return to == TripStatusCompleted
	default:
		return false
	}
}

// Location is a geographic point with a display address.
type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// Trip represents one ride request from creation to completion or
// cancellation. Identity and the reference fare are immutable after
// creation; every other mutation goes through the trip ledger.
type Trip struct {
	ID              string
	RiderID         string
	Pickup          Location
	Dropoff         Location
	Status          TripStatus
	ReferenceFare   FareQuote
	SuggestedPrice  float64 // rider's asking price, shown to drivers
	AcceptedOfferID string  // set exactly once, on the transition into accepted
	CancelReason    string
	Rating          float64 // 1..5, zero until rated
	Review          string

	CreatedAt           time.Time
	NegotiationDeadline time.Time
	StartedAt           time.Time
	CompletedAt         time.Time
	CancelledAt         time.Time
}
