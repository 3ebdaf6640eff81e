package redis

import "context"

// DemandStoreInterface defines the interface for open-negotiation counts.
type DemandStoreInterface interface {
	Register(ctx context.Context, lat, lng float64) error
	Release(ctx context.Context, lat, lng float64) error
	Count(ctx context.Context, lat, lng float64) (int, error)
}

// Ensure concrete types implement interfaces.
var _ DemandStoreInterface = (*DemandStore)(nil)
