package domain

// FactorBreakdown itemizes the multiplicative surge factors that went into
// a fare quote. Each weight is bounded; missing factors are neutral 1.0.
type FactorBreakdown struct {
	Time    float64
	Demand  float64
	Weather float64
	Traffic float64
}

// FareQuote is the reference price computed for a trip at creation time.
// It is a value object: embedded in the trip, never persisted on its own.
type FareQuote struct {
	DistanceKm      float64
	DurationMin     int
	BasePrice       float64
	SurgeMultiplier float64
	Factors         FactorBreakdown
	FinalPrice      float64

	// Degraded is set when any contextual factor source was unavailable
	// and its weight fell back to 1.0. Downstream billing and audit use
	// this to distinguish full from degraded quotes.
	Degraded bool
}
