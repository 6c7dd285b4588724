// Package quote defines the contract for fetching the current price of the
// tracked asset pair from an external source.
package quote

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Fetcher returns the current price. Implementations make a single attempt
// and never retry; every failure is reported as a *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context) (decimal.Decimal, error)
}

// FetchError reports that no usable price could be obtained.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s quote: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchFailure reports whether err is, or wraps, a *FetchError.
func IsFetchFailure(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
