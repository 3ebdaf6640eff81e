package service

import "errors"

var (
	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidOfferID is returned when offer ID is empty.
	ErrInvalidOfferID = errors.New("invalid offer id")

	// ErrInvalidPickupLocation is returned when pickup coordinates are invalid.
	ErrInvalidPickupLocation = errors.New("invalid pickup location")

	// ErrInvalidDropoffLocation is returned when dropoff coordinates are invalid.
	ErrInvalidDropoffLocation = errors.New("invalid dropoff location")

	// ErrInvalidPrice is returned when an offered or suggested price is not positive.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrInvalidRating is returned when a rating is outside 1..5.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrStaleState is returned when a transition's expected prior status
	// no longer matches reality. Definitive: the trip has moved on, the
	// caller lost the race and must not retry.
	ErrStaleState = errors.New("trip state has moved")

	// ErrInvalidTransition is returned when the target status is not
	// reachable from the current one.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrWindowClosed is returned when an offer arrives after the trip
	// left negotiating or its deadline passed.
	ErrWindowClosed = errors.New("negotiation window closed")

	// ErrAlreadyAccepted is returned when an offer was already accepted
	// for the trip.
	ErrAlreadyAccepted = errors.New("an offer was already accepted for this trip")

	// ErrOfferExpired is returned when the target offer's expiry passed
	// before acceptance.
	ErrOfferExpired = errors.New("offer expired")

	// ErrOfferNotPending is returned when the target offer already
	// reached a terminal state other than accepted or expired.
	ErrOfferNotPending = errors.New("offer is no longer pending")

	// ErrTripNotCompleted is returned when rating a trip that has not completed.
	ErrTripNotCompleted = errors.New("only completed trips can be rated")
)
