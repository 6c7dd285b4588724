package price

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmethakanbesel/price-service/internal/apperror"
)

type Service struct {
	repo   Repository
	cache  LatestCache // optional
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

// WithCache makes Latest consult the cache before the repository.
func WithCache(c LatestCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithClock overrides the clock used to resolve relative periods.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetPrices resolves the request window and returns the samples inside it,
// oldest first.
func (s *Service) GetPrices(ctx context.Context, req GetPricesRequest) ([]Sample, error) {
	var (
		samples []Sample
		err     error
	)
	if req.HasRange() {
		samples, err = s.repo.ListRange(ctx, *req.Start, *req.End)
	} else {
		w := ResolveWindow(s.now(), req.Period, nil, nil)
		samples, err = s.repo.ListFrom(ctx, w.Start)
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to query prices", err)
	}
	if samples == nil {
		samples = []Sample{}
	}
	return samples, nil
}

// Latest returns the most recent sample. A cache miss or cache error falls
// through to the repository.
func (s *Service) Latest(ctx context.Context) (*Sample, error) {
	if s.cache != nil {
		cached, err := s.cache.GetLatest(ctx)
		if err != nil {
			s.logger.Warn("latest cache read failed", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	latest, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to query latest price", err)
	}
	if latest == nil {
		return nil, apperror.New(apperror.NotFound, "no prices recorded yet")
	}
	return latest, nil
}
