package collector

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmethakanbesel/price-service/internal/price"
)

// Pipeline is one unit of scheduled work.
type Pipeline interface {
	Collect(ctx context.Context) (*price.Sample, error)
}

// Config holds scheduler configuration.
type Config struct {
	Interval    time.Duration // Time between ticks (default: 5m)
	TickTimeout time.Duration // Upper bound for a single tick (default: 1m)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Minute,
		TickTimeout: time.Minute,
	}
}

var errAlreadyStarted = errors.New("scheduler already started")

// Scheduler runs a Pipeline once on Start and then every Interval. Each tick
// runs in its own goroutine, so a slow tick never delays the next one and
// ticks may overlap.
type Scheduler struct {
	cfg      Config
	pipeline Pipeline
	logger   *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler. Zero config values take their defaults.
func NewScheduler(cfg Config, pipeline Pipeline, logger *slog.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = def.TickTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:      cfg,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Start runs the first tick synchronously, then starts the periodic loop.
// The outcome of the first tick does not affect the returned error.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return errAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.tick()

	s.wg.Add(1)
	go s.run()

	s.logger.Info("collector scheduler started",
		"interval", s.cfg.Interval,
		"tick_timeout", s.cfg.TickTimeout,
	)
	return nil
}

// Stop cancels the loop and waits for in-flight ticks to finish or for ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("collector scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.tick()
			}()
		}
	}
}

// tick runs the pipeline once. Nothing that happens here stops the loop.
func (s *Scheduler) tick() {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("collector tick panicked", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.TickTimeout)
	defer cancel()

	sample, err := s.pipeline.Collect(ctx)
	switch {
	case err != nil:
		s.logger.Error("collector tick failed", "error", err, "duration", time.Since(start))
	case sample == nil:
		s.logger.Info("collector tick skipped", "duration", time.Since(start))
	default:
		s.logger.Info("price collected",
			"id", sample.ID,
			"price", sample.Price.String(),
			"timestamp", sample.Timestamp,
			"duration", time.Since(start),
		)
	}
}
