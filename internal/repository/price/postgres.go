package price

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domain "github.com/ahmethakanbesel/price-service/internal/price"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS bitcoin_prices (
	id        BIGSERIAL PRIMARY KEY,
	price     NUMERIC NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_bitcoin_prices_timestamp ON bitcoin_prices (timestamp, id);
`

// PostgresRepository stamps samples with the database clock.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Init(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Insert(ctx context.Context, p decimal.Decimal) (domain.Sample, error) {
	if !p.IsPositive() {
		return domain.Sample{}, fmt.Errorf("insert price %s: %w", p, errNonPositive)
	}

	s := domain.Sample{Price: p}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO bitcoin_prices (price) VALUES ($1::numeric) RETURNING id, timestamp`,
		p.String(),
	).Scan(&s.ID, &s.Timestamp)
	if err != nil {
		return domain.Sample{}, fmt.Errorf("insert price: %w", err)
	}
	s.Timestamp = s.Timestamp.UTC()
	return s, nil
}

func (r *PostgresRepository) ListRange(ctx context.Context, start, end time.Time) ([]domain.Sample, error) {
	const query = `SELECT id, price::text, timestamp FROM bitcoin_prices
		WHERE timestamp BETWEEN $1 AND $2
		ORDER BY timestamp ASC, id ASC`

	return r.list(ctx, query, ceilTo(start, time.Microsecond), end)
}

func (r *PostgresRepository) ListFrom(ctx context.Context, start time.Time) ([]domain.Sample, error) {
	const query = `SELECT id, price::text, timestamp FROM bitcoin_prices
		WHERE timestamp BETWEEN $1 AND now()
		ORDER BY timestamp ASC, id ASC`

	return r.list(ctx, query, ceilTo(start, time.Microsecond))
}

func (r *PostgresRepository) Latest(ctx context.Context) (*domain.Sample, error) {
	const query = `SELECT id, price::text, timestamp FROM bitcoin_prices
		ORDER BY timestamp DESC, id DESC LIMIT 1`

	s, err := scanPostgres(r.pool.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]domain.Sample, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	defer rows.Close()

	samples := []domain.Sample{}
	for rows.Next() {
		s, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}

	return samples, rows.Err()
}

func scanPostgres(row pgx.Row) (domain.Sample, error) {
	var (
		s        domain.Sample
		priceStr string
	)
	if err := row.Scan(&s.ID, &priceStr, &s.Timestamp); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s, err
		}
		return s, fmt.Errorf("scan price: %w", err)
	}

	p, err := decimal.NewFromString(priceStr)
	if err != nil {
		return s, fmt.Errorf("scan price %d: malformed price %q: %w", s.ID, priceStr, err)
	}
	s.Price = p
	s.Timestamp = s.Timestamp.UTC()
	return s, nil
}
