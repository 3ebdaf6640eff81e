package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"joltcab/internal/config"
	"joltcab/internal/handler"
	"joltcab/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler  *handler.TripHandler
	OfferHandler *handler.OfferHandler
	EventHandler *handler.EventStreamHandler
	RedisClient  *redis.Client
	NewRelicApp  *newrelic.Application
	AuthConfig   config.AuthConfig
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.AuthConfig))
	{
		// Trip routes.
		trips := v1.Group("/trips")
		{
			trips.POST("", deps.TripHandler.CreateTrip)
			trips.GET("", deps.TripHandler.ListTrips)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.POST("/:id/cancel", deps.TripHandler.CancelTrip)
			trips.POST("/:id/start", deps.TripHandler.StartTrip)
			trips.POST("/:id/complete", deps.TripHandler.CompleteTrip)
			trips.POST("/:id/rate", deps.TripHandler.RateTrip)

			// Negotiation routes.
			trips.POST("/:id/offers", deps.OfferHandler.SubmitOffer)
			trips.POST("/:id/offers/:offerID/accept", deps.OfferHandler.AcceptOffer)

			// Real-time event stream.
			trips.GET("/:id/events", deps.EventHandler.Stream)
		}

		// Offer routes.
		offers := v1.Group("/offers")
		{
			offers.POST("/:id/reject", deps.OfferHandler.RejectOffer)
		}
	}

	return router
}
