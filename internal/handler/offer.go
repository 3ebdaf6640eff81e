package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"joltcab/internal/domain"
	"joltcab/internal/service"
)

// OfferHandler handles HTTP requests for negotiation offers.
type OfferHandler struct {
	negotiation *service.NegotiationService
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(negotiation *service.NegotiationService) *OfferHandler {
	return &OfferHandler{negotiation: negotiation}
}

// SubmitOfferRequest is the HTTP request body for submitting an offer.
type SubmitOfferRequest struct {
	DriverID     string  `json:"driver_id"`
	DriverName   string  `json:"driver_name,omitempty"`
	DriverRating float64 `json:"driver_rating,omitempty"`
	Price        float64 `json:"price"`
	Message      string  `json:"message,omitempty"`
}

// OfferBody is the HTTP representation of an offer.
type OfferBody struct {
	ID           string     `json:"offer_id"`
	TripID       string     `json:"trip_id"`
	DriverID     string     `json:"driver_id"`
	DriverName   string     `json:"driver_name,omitempty"`
	DriverRating float64    `json:"driver_rating,omitempty"`
	Price        float64    `json:"price"`
	Message      string     `json:"message,omitempty"`
	State        string     `json:"state"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	RespondedAt  *time.Time `json:"responded_at,omitempty"`
}

func offerToBody(offer *domain.Offer) OfferBody {
	body := OfferBody{
		ID:           offer.ID,
		TripID:       offer.TripID,
		DriverID:     offer.DriverID,
		DriverName:   offer.DriverName,
		DriverRating: offer.DriverRating,
		Price:        offer.Price,
		Message:      offer.Message,
		State:        string(offer.State),
		CreatedAt:    offer.CreatedAt,
		ExpiresAt:    offer.ExpiresAt,
	}
	if !offer.RespondedAt.IsZero() {
		t := offer.RespondedAt
		body.RespondedAt = &t
	}
	return body
}

// SubmitOffer handles POST /v1/trips/:id/offers
func (h *OfferHandler) SubmitOffer(c *gin.Context) {
	var req SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	offer, err := h.negotiation.SubmitOffer(c.Request.Context(), service.SubmitOfferRequest{
		TripID:       c.Param("id"),
		DriverID:     req.DriverID,
		DriverName:   req.DriverName,
		DriverRating: req.DriverRating,
		Price:        req.Price,
		Message:      req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, offerToBody(offer))
}

// AcceptOffer handles POST /v1/trips/:id/offers/:offerID/accept
func (h *OfferHandler) AcceptOffer(c *gin.Context) {
	trip, err := h.negotiation.AcceptOffer(c.Request.Context(), c.Param("id"), c.Param("offerID"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripToBody(trip))
}

// RejectOffer handles POST /v1/offers/:id/reject
func (h *OfferHandler) RejectOffer(c *gin.Context) {
	offer, err := h.negotiation.RejectOffer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, offerToBody(offer))
}
