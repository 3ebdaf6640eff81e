package service

import (
	"joltcab/internal/domain"
	"joltcab/internal/events"
)

// EventPublisher is the fan-out boundary. Publishing is fire and forget
// relative to the ledger: transitions commit first, publish happens
// after, and no publish failure ever rolls back a committed change.
type EventPublisher interface {
	Publish(tripID string, kind events.Kind, payload map[string]interface{})

	// CloseTrip retires the trip's event stream once it is terminal.
	CloseTrip(tripID string)
}

// Ensure the in-process bus satisfies the boundary.
var _ EventPublisher = (*events.Bus)(nil)

func offerPayload(offer *domain.Offer) map[string]interface{} {
	return map[string]interface{}{
		"offer_id":      offer.ID,
		"driver_id":     offer.DriverID,
		"driver_name":   offer.DriverName,
		"driver_rating": offer.DriverRating,
		"price":         offer.Price,
		"message":       offer.Message,
		"state":         string(offer.State),
		"created_at":    offer.CreatedAt,
		"expires_at":    offer.ExpiresAt,
	}
}

func statusPayload(trip *domain.Trip) map[string]interface{} {
	payload := map[string]interface{}{
		"status": string(trip.Status),
	}
	if trip.AcceptedOfferID != "" {
		payload["accepted_offer_id"] = trip.AcceptedOfferID
	}
	if trip.CancelReason != "" {
		payload["cancel_reason"] = trip.CancelReason
	}
	return payload
}
