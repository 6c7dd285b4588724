// Package binance fetches spot prices from the Binance public ticker API.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/price-service/internal/quote"
)

const (
	defaultEndpoint = "https://api.binance.com/api/v3/ticker/price"
	defaultSymbol   = "BTCUSDT"
	defaultTimeout  = 10 * time.Second
	maxBodyBytes    = 1 << 16
	sourceName      = "binance"
)

var (
	errStatus      = errors.New("unexpected status")
	errEmptyPrice  = errors.New("empty price")
	errNonPositive = errors.New("non-positive price")
)

// Client fetches the latest price of a single symbol.
type Client struct {
	client   *http.Client
	endpoint string
	symbol   string
	logger   *slog.Logger
}

// New creates a Client with the given options applied.
func New(opts ...Option) *Client {
	c := &Client{
		client:   &http.Client{Timeout: defaultTimeout},
		endpoint: defaultEndpoint,
		symbol:   defaultSymbol,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Option configures a Client.
type Option func(*Client)

// WithClient sets the HTTP client.
func WithClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithEndpoint overrides the ticker endpoint.
func WithEndpoint(ep string) Option {
	return func(c *Client) { c.endpoint = ep }
}

// WithSymbol sets the asset pair, e.g. BTCUSDT.
func WithSymbol(s string) Option {
	return func(c *Client) { c.symbol = s }
}

// WithTimeout bounds each request. It replaces the timeout of the current
// HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.client
		hc.Timeout = d
		c.client = &hc
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Symbol returns the configured asset pair.
func (c *Client) Symbol() string { return c.symbol }

type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Fetch returns the current price of the configured symbol.
func (c *Client) Fetch(ctx context.Context) (decimal.Decimal, error) {
	p, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("quote fetch failed", "source", sourceName, "symbol", c.symbol, "error", err)
		return decimal.Zero, &quote.FetchError{Source: sourceName, Err: err}
	}
	return p, nil
}

func (c *Client) fetch(ctx context.Context) (decimal.Decimal, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("symbol", c.symbol)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return decimal.Zero, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decimal.Zero, fmt.Errorf("%w %d: %s", errStatus, resp.StatusCode, truncate(body, 200))
	}

	var tr tickerResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return decimal.Zero, fmt.Errorf("decode response: %w", err)
	}
	if tr.Price == "" {
		return decimal.Zero, errEmptyPrice
	}

	p, err := decimal.NewFromString(tr.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", tr.Price, err)
	}
	if !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", errNonPositive, p)
	}
	return p, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
