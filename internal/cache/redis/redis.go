// Package redis caches the most recently collected sample in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ahmethakanbesel/price-service/internal/price"
)

const keyPrefix = "price-service:latest:"

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Cache implements price.LatestCache.
type Cache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// entry is the stored representation. The price is kept as its exact decimal
// string.
type entry struct {
	ID        int64     `msgpack:"id"`
	Price     string    `msgpack:"p"`
	Timestamp time.Time `msgpack:"t"`
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config, symbol string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client, cfg.TTL, symbol), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration, symbol string) *Cache {
	return &Cache{client: client, key: keyPrefix + symbol, ttl: ttl}
}

// setLatest stores the entry only when it is newer than the cached one, by
// timestamp then id. Ticks may overlap, so writes can arrive out of order.
//
// KEYS[1] latest hash, ARGV[1] timestamp (unix ms), ARGV[2] id,
// ARGV[3] encoded entry, ARGV[4] ttl in ms (0 keeps the key forever).
var setLatest = redis.NewScript(`
local ts = tonumber(redis.call('HGET', KEYS[1], 'ts'))
local id = tonumber(redis.call('HGET', KEYS[1], 'id'))
local nts = tonumber(ARGV[1])
local nid = tonumber(ARGV[2])
if ts and (ts > nts or (ts == nts and id >= nid)) then
	return 0
end
redis.call('HSET', KEYS[1], 'ts', ARGV[1], 'id', ARGV[2], 'v', ARGV[3])
if tonumber(ARGV[4]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[4])
end
return 1
`)

// SetLatest records s unless a newer sample is already cached.
func (c *Cache) SetLatest(ctx context.Context, s price.Sample) error {
	ts := s.Timestamp.UTC()
	data, err := msgpack.Marshal(entry{ID: s.ID, Price: s.Price.String(), Timestamp: ts})
	if err != nil {
		return fmt.Errorf("encode latest: %w", err)
	}
	err = setLatest.Run(ctx, c.client, []string{c.key},
		ts.UnixMilli(), s.ID, data, c.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("set latest: %w", err)
	}
	return nil
}

// GetLatest returns nil without error on a cache miss.
func (c *Cache) GetLatest(ctx context.Context) (*price.Sample, error) {
	data, err := c.client.HGet(ctx, c.key, "v").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest: %w", err)
	}

	var e entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode latest: %w", err)
	}
	p, err := decimal.NewFromString(e.Price)
	if err != nil {
		return nil, fmt.Errorf("decode latest price %q: %w", e.Price, err)
	}
	return &price.Sample{ID: e.ID, Price: p, Timestamp: e.Timestamp.UTC()}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
