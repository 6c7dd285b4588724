// Package collector samples the quote source and appends each price to the
// time-series store, once at startup and then on a fixed interval.
package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/price-service/internal/price"
	"github.com/ahmethakanbesel/price-service/internal/quote"
)

//go:generate mockgen -source=collector.go -destination=mock_collector_test.go -package=collector
//go:generate mockgen -destination=mock_fetcher_test.go -package=collector github.com/ahmethakanbesel/price-service/internal/quote Fetcher

// Store appends samples.
type Store interface {
	Insert(ctx context.Context, p decimal.Decimal) (price.Sample, error)
}

// Publisher receives each sample after it has been stored.
type Publisher interface {
	SetLatest(ctx context.Context, s price.Sample) error
}

// Collector runs the fetch-then-insert pipeline.
type Collector struct {
	fetcher   quote.Fetcher
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

type Option func(*Collector)

// WithPublisher sets a publisher that is notified of every stored sample.
func WithPublisher(p Publisher) Option {
	return func(c *Collector) { c.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

func New(fetcher quote.Fetcher, store Store, opts ...Option) *Collector {
	c := &Collector{
		fetcher: fetcher,
		store:   store,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Collect fetches one price and stores it. When the fetch fails with a
// *quote.FetchError, nothing is stored and Collect returns (nil, nil): a
// skipped tick is not an error. Any other fetcher error is returned and
// nothing is stored. An insert error means the sample is lost.
func (c *Collector) Collect(ctx context.Context) (*price.Sample, error) {
	p, err := c.fetcher.Fetch(ctx)
	if err != nil {
		if !quote.IsFetchFailure(err) {
			return nil, fmt.Errorf("fetch quote: %w", err)
		}
		c.logger.Warn("collect: skipping tick", "error", err)
		return nil, nil
	}
	if !p.IsPositive() {
		c.logger.Warn("collect: skipping tick", "error", "non-positive price", "price", p.String())
		return nil, nil
	}

	s, err := c.store.Insert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("store sample: %w", err)
	}

	if c.publisher != nil {
		if err := c.publisher.SetLatest(ctx, s); err != nil {
			c.logger.Warn("collect: publish latest", "id", s.ID, "error", err)
		}
	}

	return &s, nil
}
