package price

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sample is a single recorded price observation. Samples are append-only.
type Sample struct {
	ID        int64           `json:"-"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// DefaultPeriod is used when no period is given or the given one is unknown.
const DefaultPeriod = PeriodDay
