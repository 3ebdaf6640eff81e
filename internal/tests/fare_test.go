package tests

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"joltcab/internal/domain"
	"joltcab/internal/service"
)

// ──────────────────────────────────────────────
// 1. FARE ESTIMATION
// ──────────────────────────────────────────────

var (
	// Downtown San Francisco, roughly 1.4 km apart.
	sfPickup  = domain.Location{Latitude: 37.7749, Longitude: -122.4194}
	sfDropoff = domain.Location{Latitude: 37.7849, Longitude: -122.4094}

	// Midday on a weekday, outside every peak window.
	offPeak = time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
)

func newTestFareService(demand *MockDemandCounter, weather, traffic service.FactorProvider) *service.FareService {
	factors := service.NewContextFactors(demand, weather, traffic)
	return service.NewFareService(testFareConfig(), factors)
}

func neutralFareService() *service.FareService {
	return newTestFareService(NewMockDemandCounter(),
		service.StaticFactorProvider{Value: 1.0},
		service.StaticFactorProvider{Value: 1.0})
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFare_Deterministic(t *testing.T) {
	t.Parallel()

	svc := neutralFareService()
	ctx := context.Background()

	first := svc.Estimate(ctx, sfPickup, sfDropoff, offPeak)
	second := svc.Estimate(ctx, sfPickup, sfDropoff, offPeak)

	if first != second {
		t.Errorf("identical inputs produced different quotes: %+v vs %+v", first, second)
	}
}

func TestFare_ZeroDistance(t *testing.T) {
	t.Parallel()

	svc := neutralFareService()
	quote := svc.Estimate(context.Background(), sfPickup, sfPickup, offPeak)

	if quote.DistanceKm != 0 {
		t.Errorf("expected zero distance, got %f", quote.DistanceKm)
	}
	if quote.DurationMin != 0 {
		t.Errorf("expected zero duration, got %d", quote.DurationMin)
	}
	if !almostEqual(quote.BasePrice, 5.0) {
		t.Errorf("expected base price to equal the flag fall, got %f", quote.BasePrice)
	}
}

func TestFare_DowntownRoute(t *testing.T) {
	t.Parallel()

	svc := neutralFareService()
	quote := svc.Estimate(context.Background(), sfPickup, sfDropoff, offPeak)

	if quote.DistanceKm < 1.3 || quote.DistanceKm > 1.5 {
		t.Errorf("distance out of expected range: %f", quote.DistanceKm)
	}
	if quote.DurationMin < 1 {
		t.Errorf("expected at least 1 minute, got %d", quote.DurationMin)
	}

	wantBase := math.Round((5.0+2.5*quote.DistanceKm)*100) / 100
	if !almostEqual(quote.BasePrice, wantBase) {
		t.Errorf("base price inconsistent with distance: got %f, want %f", quote.BasePrice, wantBase)
	}
	if !almostEqual(quote.SurgeMultiplier, 1.0) {
		t.Errorf("expected neutral surge off peak, got %f", quote.SurgeMultiplier)
	}
	if !almostEqual(quote.FinalPrice, quote.BasePrice) {
		t.Errorf("neutral surge should leave final at base: %f vs %f", quote.FinalPrice, quote.BasePrice)
	}
	if quote.Degraded {
		t.Error("quote should not be degraded with healthy factor sources")
	}
}

func TestFare_PeakHourWeighting(t *testing.T) {
	t.Parallel()

	svc := neutralFareService()
	morningPeak := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	quote := svc.Estimate(context.Background(), sfPickup, sfDropoff, morningPeak)

	if !almostEqual(quote.Factors.Time, 1.3) {
		t.Errorf("expected 1.3 time factor at 08:00, got %f", quote.Factors.Time)
	}
	wantFinal := math.Round(quote.BasePrice*1.3*100) / 100
	if !almostEqual(quote.FinalPrice, wantFinal) {
		t.Errorf("final price %f, want %f", quote.FinalPrice, wantFinal)
	}
}

func TestFare_DemandTiers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		count int
		want  float64
	}{
		{0, 1.0},
		{4, 1.0},
		{5, 1.25},
		{10, 1.5},
		{19, 1.5},
		{20, 2.0},
		{100, 2.0},
	}

	for _, tc := range cases {
		demand := NewMockDemandCounter()
		demand.SetCount(tc.count)
		svc := newTestFareService(demand,
			service.StaticFactorProvider{Value: 1.0},
			service.StaticFactorProvider{Value: 1.0})

		quote := svc.Estimate(context.Background(), sfPickup, sfDropoff, offPeak)
		if !almostEqual(quote.Factors.Demand, tc.want) {
			t.Errorf("count %d: demand factor %f, want %f", tc.count, quote.Factors.Demand, tc.want)
		}
	}
}

func TestFare_DegradedOnWeatherFailure(t *testing.T) {
	t.Parallel()

	svc := newTestFareService(NewMockDemandCounter(),
		MockFactorProvider{Err: errors.New("weather api down")},
		service.StaticFactorProvider{Value: 1.0})

	quote := svc.Estimate(context.Background(), sfPickup, sfDropoff, offPeak)

	if !quote.Degraded {
		t.Error("expected degraded quote when the weather source fails")
	}
	if !almostEqual(quote.Factors.Weather, 1.0) {
		t.Errorf("expected neutral weather fallback, got %f", quote.Factors.Weather)
	}
	if quote.FinalPrice <= 0 {
		t.Errorf("degraded estimate must still price the trip, got %f", quote.FinalPrice)
	}
}

func TestFare_DegradedOnDemandFailure(t *testing.T) {
	t.Parallel()

	demand := NewMockDemandCounter()
	demand.CountError = errors.New("redis down")
	svc := newTestFareService(demand,
		service.StaticFactorProvider{Value: 1.0},
		service.StaticFactorProvider{Value: 1.0})

	quote := svc.Estimate(context.Background(), sfPickup, sfDropoff, offPeak)

	if !quote.Degraded {
		t.Error("expected degraded quote when the demand source fails")
	}
	if !almostEqual(quote.Factors.Demand, 1.0) {
		t.Errorf("expected neutral demand fallback, got %f", quote.Factors.Demand)
	}
}

func TestFare_SurgeClamped(t *testing.T) {
	t.Parallel()

	demand := NewMockDemandCounter()
	demand.SetCount(50) // 2.0x demand
	svc := newTestFareService(demand,
		service.StaticFactorProvider{Value: 10.0}, // clamped to 3.0 per factor
		service.StaticFactorProvider{Value: 2.0})

	quote := svc.Estimate(context.Background(), sfPickup, sfDropoff, offPeak)

	if !almostEqual(quote.Factors.Weather, 3.0) {
		t.Errorf("individual factor not clamped: %f", quote.Factors.Weather)
	}
	if !almostEqual(quote.SurgeMultiplier, 3.0) {
		t.Errorf("surge product not clamped to max: %f", quote.SurgeMultiplier)
	}
	wantFinal := math.Round(quote.BasePrice*3.0*100) / 100
	if !almostEqual(quote.FinalPrice, wantFinal) {
		t.Errorf("final price %f, want %f", quote.FinalPrice, wantFinal)
	}
}

func TestFare_HaversineSymmetry(t *testing.T) {
	t.Parallel()

	forward := service.HaversineKm(sfPickup.Latitude, sfPickup.Longitude, sfDropoff.Latitude, sfDropoff.Longitude)
	backward := service.HaversineKm(sfDropoff.Latitude, sfDropoff.Longitude, sfPickup.Latitude, sfPickup.Longitude)

	if math.Abs(forward-backward) > 1e-9 {
		t.Errorf("distance should be symmetric: %f vs %f", forward, backward)
	}
	if forward <= 0 {
		t.Errorf("expected positive distance, got %f", forward)
	}
}
