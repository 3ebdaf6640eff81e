package service

import (
	"context"
	"math"
	"time"

	"joltcab/internal/config"
	"joltcab/internal/domain"
)

const earthRadiusKm = 6371

// factorMin and factorMax bound every individual surge factor.
const (
	factorMin = 0.5
	factorMax = 3.0
)

// FareService computes reference fares. Given identical inputs
// (coordinates, request time, factor values) the output is identical, so
// disputed fares can be reproduced.
type FareService struct {
	cfg     config.FareConfig
	factors FactorSource
}

// NewFareService creates a new FareService.
func NewFareService(cfg config.FareConfig, factors FactorSource) *FareService {
	return &FareService{cfg: cfg, factors: factors}
}

// Estimate computes the reference fare for a trip requested at the given
// time. Contextual factor failures degrade to neutral weights; the
// estimate itself never fails.
func (s *FareService) Estimate(ctx context.Context, pickup, dropoff domain.Location, at time.Time) domain.FareQuote {
	distance := HaversineKm(pickup.Latitude, pickup.Longitude, dropoff.Latitude, dropoff.Longitude)
	distance = round2(distance)

	quote := domain.FareQuote{
		DistanceKm:  distance,
		DurationMin: s.estimateDurationMin(distance),
		BasePrice:   round2(s.cfg.FlagFall + s.cfg.PerKmRate*distance),
	}

	quote.Factors, quote.Degraded = s.resolveFactors(ctx, pickup, at)

	surge := quote.Factors.Time * quote.Factors.Demand * quote.Factors.Weather * quote.Factors.Traffic
	if s.cfg.MaxSurge > 0 && surge > s.cfg.MaxSurge {
		surge = s.cfg.MaxSurge
	}
	quote.SurgeMultiplier = surge
	quote.FinalPrice = round2(quote.BasePrice * surge)

	return quote
}

// resolveFactors gathers the contextual factors, substituting 1.0 for any
// source that is unavailable and flagging the quote as degraded.
func (s *FareService) resolveFactors(ctx context.Context, pickup domain.Location, at time.Time) (domain.FactorBreakdown, bool) {
	factors := domain.FactorBreakdown{Time: 1.0, Demand: 1.0, Weather: 1.0, Traffic: 1.0}
	degraded := false

	factors.Time = clampFactor(s.factors.TimeOfDay(at))

	if v, err := s.factors.Demand(ctx, pickup.Latitude, pickup.Longitude); err != nil {
		degraded = true
	} else {
		factors.Demand = clampFactor(v)
	}

	if v, err := s.factors.Weather(ctx, pickup.Latitude, pickup.Longitude, at); err != nil {
		degraded = true
	} else {
		factors.Weather = clampFactor(v)
	}

	if v, err := s.factors.Traffic(ctx, pickup.Latitude, pickup.Longitude, at); err != nil {
		degraded = true
	} else {
		factors.Traffic = clampFactor(v)
	}

	return factors, degraded
}

func (s *FareService) estimateDurationMin(distanceKm float64) int {
	if distanceKm <= 0 {
		return 0
	}
	speed := s.cfg.AvgSpeedKmh
	if speed <= 0 {
		speed = 30
	}
	minutes := int(math.Ceil(distanceKm / speed * 60))
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// HaversineKm returns the great-circle distance between two coordinate
// pairs in kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlng1 := lng1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	rlng2 := lng2 * math.Pi / 180

	dlat := rlat2 - rlat1
	dlng := rlng2 - rlng1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return earthRadiusKm * c
}

func clampFactor(v float64) float64 {
	if v < factorMin {
		return factorMin
	}
	if v > factorMax {
		return factorMax
	}
	return v
}

// round2 rounds to the currency's minor-unit precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
