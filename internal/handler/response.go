package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"joltcab/internal/repository"
	"joltcab/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidOfferID),
		errors.Is(err, service.ErrInvalidPickupLocation),
		errors.Is(err, service.ErrInvalidDropoffLocation),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusBadRequest

	// Concurrency losers - Conflict, definitive, never retried
	case errors.Is(err, service.ErrStaleState),
		errors.Is(err, service.ErrWindowClosed),
		errors.Is(err, service.ErrAlreadyAccepted),
		errors.Is(err, service.ErrOfferNotPending),
		errors.Is(err, service.ErrTripNotCompleted):
		return http.StatusConflict

	// The offer is gone for good
	case errors.Is(err, service.ErrOfferExpired):
		return http.StatusGone

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
