package price

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/ahmethakanbesel/price-service/internal/price"
)

// Timestamps are stored as fixed-width UTC text so that lexical order is
// chronological order. This is the same layout sqlite's
// strftime('%Y-%m-%dT%H:%M:%fZ') produces for the column default.
const timestampFormat = "2006-01-02T15:04:05.000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bitcoin_prices (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	price     TEXT NOT NULL,
	timestamp TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_bitcoin_prices_timestamp ON bitcoin_prices (timestamp, id);
`

var errNonPositive = errors.New("price must be positive")

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

type SQLiteOption func(*SQLiteRepository)

// WithClock overrides the clock used to stamp inserted samples.
func WithClock(now func() time.Time) SQLiteOption {
	return func(r *SQLiteRepository) { r.now = now }
}

func NewSQLiteRepository(db *sql.DB, opts ...SQLiteOption) *SQLiteRepository {
	r := &SQLiteRepository{db: db, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *SQLiteRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, p decimal.Decimal) (domain.Sample, error) {
	if !p.IsPositive() {
		return domain.Sample{}, fmt.Errorf("insert price %s: %w", p, errNonPositive)
	}

	at := r.now().UTC().Truncate(time.Millisecond)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bitcoin_prices (price, timestamp) VALUES (?, ?)`,
		p.String(), at.Format(timestampFormat),
	)
	if err != nil {
		return domain.Sample{}, fmt.Errorf("insert price: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Sample{}, fmt.Errorf("insert price: last insert id: %w", err)
	}
	return domain.Sample{ID: id, Price: p, Timestamp: at}, nil
}

func (r *SQLiteRepository) ListRange(ctx context.Context, start, end time.Time) ([]domain.Sample, error) {
	const query = `SELECT id, price, timestamp FROM bitcoin_prices
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query,
		ceilTo(start, time.Millisecond).Format(timestampFormat), end.UTC().Format(timestampFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	samples := []domain.Sample{}
	for rows.Next() {
		s, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}

	return samples, rows.Err()
}

func (r *SQLiteRepository) ListFrom(ctx context.Context, start time.Time) ([]domain.Sample, error) {
	return r.ListRange(ctx, start, r.now())
}

func (r *SQLiteRepository) Latest(ctx context.Context) (*domain.Sample, error) {
	const query = `SELECT id, price, timestamp FROM bitcoin_prices
		ORDER BY timestamp DESC, id DESC LIMIT 1`

	s, err := scanSQLite(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ceilTo rounds t up to a multiple of d, in UTC. Bound encoding truncates to
// the column precision, so a start bound is rounded up first to keep
// start <= timestamp exact.
func ceilTo(t time.Time, d time.Duration) time.Time {
	t = t.UTC()
	if tr := t.Truncate(d); !tr.Equal(t) {
		return tr.Add(d)
	}
	return t
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row scanner) (domain.Sample, error) {
	var (
		s              domain.Sample
		priceStr, tStr string
	)
	if err := row.Scan(&s.ID, &priceStr, &tStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, err
		}
		return s, fmt.Errorf("scan price: %w", err)
	}

	p, err := decimal.NewFromString(priceStr)
	if err != nil {
		return s, fmt.Errorf("scan price %d: malformed price %q: %w", s.ID, priceStr, err)
	}
	t, err := time.Parse(time.RFC3339Nano, tStr)
	if err != nil {
		return s, fmt.Errorf("scan price %d: malformed timestamp %q: %w", s.ID, tStr, err)
	}

	s.Price = p
	s.Timestamp = t
	return s, nil
}
