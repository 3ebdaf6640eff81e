package postgres

import (
	"context"
	"database/sql"

	"joltcab/internal/repository"
)

// Querier abstracts *sql.DB and *sql.Tx so repositories can run either
// standalone or inside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// Ensure concrete types implement the repository interfaces.
var (
	_ repository.TripRepository   = (*TripRepository)(nil)
	_ repository.OfferRepository  = (*OfferRepository)(nil)
	_ repository.NegotiationStore = (*NegotiationStore)(nil)
)
