package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"joltcab/internal/domain"
	"joltcab/internal/repository"
	"joltcab/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	ledger      *service.TripLedger
	negotiation *service.NegotiationService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(ledger *service.TripLedger, negotiation *service.NegotiationService) *TripHandler {
	return &TripHandler{ledger: ledger, negotiation: negotiation}
}

// LocationBody is the HTTP representation of a location.
type LocationBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// CreateTripRequest is the HTTP request body for creating a trip.
type CreateTripRequest struct {
	RiderID        string       `json:"rider_id"`
	Pickup         LocationBody `json:"pickup_location"`
	Dropoff        LocationBody `json:"dropoff_location"`
	SuggestedPrice float64      `json:"suggested_price,omitempty"`
}

// CancelTripRequest is the HTTP request body for cancelling a trip.
type CancelTripRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RateTripRequest is the HTTP request body for rating a trip.
type RateTripRequest struct {
	Rating float64 `json:"rating"`
	Review string  `json:"review,omitempty"`
}

// FareQuoteBody is the HTTP representation of a fare quote.
type FareQuoteBody struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMin     int     `json:"duration_min"`
	BasePrice       float64 `json:"base_price"`
	SurgeMultiplier float64 `json:"surge_multiplier"`
	FactorTime      float64 `json:"factor_time"`
	FactorDemand    float64 `json:"factor_demand"`
	FactorWeather   float64 `json:"factor_weather"`
	FactorTraffic   float64 `json:"factor_traffic"`
	FinalPrice      float64 `json:"final_price"`
	Degraded        bool    `json:"degraded"`
}

// TripBody is the HTTP representation of a trip.
type TripBody struct {
	ID                  string        `json:"id"`
	RiderID             string        `json:"rider_id"`
	Pickup              LocationBody  `json:"pickup_location"`
	Dropoff             LocationBody  `json:"dropoff_location"`
	Status              string        `json:"status"`
	ReferenceFare       FareQuoteBody `json:"reference_fare"`
	SuggestedPrice      float64       `json:"suggested_price,omitempty"`
	AcceptedOfferID     string        `json:"accepted_offer_id,omitempty"`
	CancelReason        string        `json:"cancel_reason,omitempty"`
	Rating              float64       `json:"rating,omitempty"`
	Review              string        `json:"review,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	NegotiationDeadline time.Time     `json:"negotiation_deadline"`
	StartedAt           *time.Time    `json:"started_at,omitempty"`
	CompletedAt         *time.Time    `json:"completed_at,omitempty"`
	CancelledAt         *time.Time    `json:"cancelled_at,omitempty"`
}

// TripStateResponse is the HTTP response for the trip state pull used by
// reconnect resynchronization: the trip plus all of its offers.
type TripStateResponse struct {
	Trip   TripBody    `json:"trip"`
	Offers []OfferBody `json:"offers"`
}

func tripToBody(trip *domain.Trip) TripBody {
	q := trip.ReferenceFare
	body := TripBody{
		ID:      trip.ID,
		RiderID: trip.RiderID,
		Pickup: LocationBody{
			Latitude:  trip.Pickup.Latitude,
			Longitude: trip.Pickup.Longitude,
			Address:   trip.Pickup.Address,
		},
		Dropoff: LocationBody{
			Latitude:  trip.Dropoff.Latitude,
			Longitude: trip.Dropoff.Longitude,
			Address:   trip.Dropoff.Address,
		},
		Status: string(trip.Status),
		ReferenceFare: FareQuoteBody{
			DistanceKm:      q.DistanceKm,
			DurationMin:     q.DurationMin,
			BasePrice:       q.BasePrice,
			SurgeMultiplier: q.SurgeMultiplier,
			FactorTime:      q.Factors.Time,
			FactorDemand:    q.Factors.Demand,
			FactorWeather:   q.Factors.Weather,
			FactorTraffic:   q.Factors.Traffic,
			FinalPrice:      q.FinalPrice,
			Degraded:        q.Degraded,
		},
		SuggestedPrice:      trip.SuggestedPrice,
		AcceptedOfferID:     trip.AcceptedOfferID,
		CancelReason:        trip.CancelReason,
		Rating:              trip.Rating,
		Review:              trip.Review,
		CreatedAt:           trip.CreatedAt,
		NegotiationDeadline: trip.NegotiationDeadline,
	}

	if !trip.StartedAt.IsZero() {
		t := trip.StartedAt
		body.StartedAt = &t
	}
	if !trip.CompletedAt.IsZero() {
		t := trip.CompletedAt
		body.CompletedAt = &t
	}
	if !trip.CancelledAt.IsZero() {
		t := trip.CancelledAt
		body.CancelledAt = &t
	}
	return body
}

// CreateTrip handles POST /v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.ledger.Create(c.Request.Context(), service.CreateTripRequest{
		RiderID: req.RiderID,
		Pickup: domain.Location{
			Latitude:  req.Pickup.Latitude,
			Longitude: req.Pickup.Longitude,
			Address:   req.Pickup.Address,
		},
		Dropoff: domain.Location{
			Latitude:  req.Dropoff.Latitude,
			Longitude: req.Dropoff.Longitude,
			Address:   req.Dropoff.Address,
		},
		SuggestedPrice: req.SuggestedPrice,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, tripToBody(trip))
}

// GetTrip handles GET /v1/trips/:id. Returns the trip together with its
// offers so a reconnecting client can resynchronize in one pull.
func (h *TripHandler) GetTrip(c *gin.Context) {
	tripID := c.Param("id")

	trip, err := h.ledger.Get(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	offers, err := h.negotiation.Offers(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := TripStateResponse{Trip: tripToBody(trip), Offers: []OfferBody{}}
	for _, offer := range offers {
		response.Offers = append(response.Offers, offerToBody(offer))
	}

	respondJSON(c, http.StatusOK, response)
}

// ListTrips handles GET /v1/trips
func (h *TripHandler) ListTrips(c *gin.Context) {
	trips, err := h.ledger.List(c.Request.Context(), repository.TripFilter{
		RiderID: c.Query("rider_id"),
		Status:  domain.TripStatus(c.Query("status")),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripBody, 0, len(trips))
	for _, trip := range trips {
		response = append(response, tripToBody(trip))
	}

	respondJSON(c, http.StatusOK, response)
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	var req CancelTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.ledger.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripToBody(trip))
}

// StartTrip handles POST /v1/trips/:id/start
func (h *TripHandler) StartTrip(c *gin.Context) {
	trip, err := h.ledger.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripToBody(trip))
}

// CompleteTrip handles POST /v1/trips/:id/complete
func (h *TripHandler) CompleteTrip(c *gin.Context) {
	trip, err := h.ledger.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripToBody(trip))
}

// RateTrip handles POST /v1/trips/:id/rate
func (h *TripHandler) RateTrip(c *gin.Context) {
	var req RateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.ledger.Rate(c.Request.Context(), c.Param("id"), req.Rating, req.Review)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripToBody(trip))
}
