package price

import (
	"strings"
	"time"
)

// Accepted layouts for explicit start/end values. Layouts without a zone are
// read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

type GetPricesRequest struct {
	Period Period
	Start  *time.Time
	End    *time.Time
}

// NewGetPricesRequest builds a request from raw query values. A start or end
// that is empty or unparseable is dropped, which sends the request down the
// period path.
func NewGetPricesRequest(period, start, end string) GetPricesRequest {
	return GetPricesRequest{
		Period: ParsePeriod(period),
		Start:  parseTime(start),
		End:    parseTime(end),
	}
}

// HasRange reports whether the request carries an explicit range.
func (r GetPricesRequest) HasRange() bool {
	return r.Start != nil && r.End != nil
}

func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
