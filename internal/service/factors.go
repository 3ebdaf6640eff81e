package service

import (
	"context"
	"time"

	"joltcab/internal/redis"
)

// FactorSource supplies the contextual surge factors. Implementations may
// fail for the I/O-backed factors; the fare service recovers with a
// neutral weight and flags the quote as degraded.
type FactorSource interface {
	// TimeOfDay is computed locally and cannot fail.
	TimeOfDay(t time.Time) float64
	Demand(ctx context.Context, lat, lng float64) (float64, error)
	Weather(ctx context.Context, lat, lng float64, t time.Time) (float64, error)
	Traffic(ctx context.Context, lat, lng float64, t time.Time) (float64, error)
}

// FactorProvider is the boundary to an external weather or traffic
// conditions source.
type FactorProvider interface {
	Factor(ctx context.Context, lat, lng float64, t time.Time) (float64, error)
}

// StaticFactorProvider always returns a fixed weight. Used when no live
// conditions source is wired in.
type StaticFactorProvider struct {
	Value float64
}

// Factor returns the fixed weight.
func (p StaticFactorProvider) Factor(ctx context.Context, lat, lng float64, t time.Time) (float64, error) {
	return p.Value, nil
}

// ContextFactors is the production FactorSource: time of day from the
// request clock, demand from the redis negotiation counter, weather and
// traffic from pluggable providers.
type ContextFactors struct {
	demand  redis.DemandStoreInterface
	weather FactorProvider
	traffic FactorProvider
}

// NewContextFactors creates a new ContextFactors.
func NewContextFactors(demand redis.DemandStoreInterface, weather, traffic FactorProvider) *ContextFactors {
	return &ContextFactors{demand: demand, weather: weather, traffic: traffic}
}

// TimeOfDay weights commute peaks and late-night hours.
func (f *ContextFactors) TimeOfDay(t time.Time) float64 {
	hour := t.Hour()
	switch {
	case hour >= 7 && hour < 10:
		return 1.3
	case hour >= 17 && hour < 20:
		return 1.3
	case hour >= 23 || hour < 5:
		return 1.2
	default:
		return 1.0
	}
}

// demand tiers: open negotiations in the pickup cell.
const (
	demandLowCount  = 5  // 1.25x
	demandMedCount  = 10 // 1.5x
	demandHighCount = 20 // 2.0x
)

// Demand maps the open-negotiation count around the pickup to a weight.
func (f *ContextFactors) Demand(ctx context.Context, lat, lng float64) (float64, error) {
	count, err := f.demand.Count(ctx, lat, lng)
	if err != nil {
		return 0, err
	}

	switch {
	case count >= demandHighCount:
		return 2.0, nil
	case count >= demandMedCount:
		return 1.5, nil
	case count >= demandLowCount:
		return 1.25, nil
	default:
		return 1.0, nil
	}
}

// Weather returns the current weather weight at the pickup.
func (f *ContextFactors) Weather(ctx context.Context, lat, lng float64, t time.Time) (float64, error) {
	return f.weather.Factor(ctx, lat, lng, t)
}

// Traffic returns the current traffic weight at the pickup.
func (f *ContextFactors) Traffic(ctx context.Context, lat, lng float64, t time.Time) (float64, error) {
	return f.traffic.Factor(ctx, lat, lng, t)
}
