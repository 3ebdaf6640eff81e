package domain

import "time"

// OfferState represents the current state of a driver's offer.
type OfferState string

const (
	OfferStatePending    OfferState = "pending"
	OfferStateAccepted   OfferState = "accepted"
	OfferStateRejected   OfferState = "rejected"
	OfferStateExpired    OfferState = "expired"
	OfferStateSuperseded OfferState = "superseded"
)

// IsTerminal reports whether the offer can no longer change state.
// Every state except pending is terminal.
func (s OfferState) IsTerminal() bool {
	return s != OfferStatePending
}

// Offer is a driver's proposed price against an open trip negotiation.
// Offers are never physically deleted; terminal states preserve the
// audit trail of the negotiation.
type Offer struct {
	ID           string
	TripID       string
	DriverID     string
	DriverName   string
	DriverRating float64
	Price        float64
	Message      string
	State        OfferState
	CreatedAt    time.Time
	ExpiresAt    time.Time // fixed at admission, never extended
	RespondedAt  time.Time // zero until the offer reaches a terminal state
}

// IsExpired reports whether the offer's expiry has passed at the given time.
func (o *Offer) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
