package price

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=repository.go -destination=mock_repository_test.go -package=price

// Repository is the append-only time-series store for price samples.
type Repository interface {
	// Init creates the backing schema if it does not exist. It never drops data.
	Init(ctx context.Context) error
	// Insert appends a sample stamped with the store's current time.
	Insert(ctx context.Context, p decimal.Decimal) (Sample, error)
	// ListRange returns samples with start <= timestamp <= end ordered by
	// timestamp then id.
	ListRange(ctx context.Context, start, end time.Time) ([]Sample, error)
	// ListFrom is ListRange(start, now).
	ListFrom(ctx context.Context, start time.Time) ([]Sample, error)
	// Latest returns the most recent sample, or nil when the store is empty.
	Latest(ctx context.Context) (*Sample, error)
}

// LatestCache holds the most recently collected sample.
type LatestCache interface {
	GetLatest(ctx context.Context) (*Sample, error)
	SetLatest(ctx context.Context, s Sample) error
}
