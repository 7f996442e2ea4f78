package types

import "time"

// Granularity is the bucket size of a chart series.
type Granularity string

const (
	GranularityIntraday Granularity = "INTRADAY"
	GranularityDaily    Granularity = "DAILY"
	GranularityMonthly  Granularity = "MONTHLY"
	GranularityYearly   Granularity = "YEARLY"
)

// ParseGranularity validates a granularity tag.
func ParseGranularity(s string) (Granularity, bool) {
	switch g := Granularity(s); g {
	case GranularityIntraday, GranularityDaily, GranularityMonthly, GranularityYearly:
		return g, true
	}
	return "", false
}

// ChartPoint is one bucket of a series. Intraday points carry a Timestamp;
// the others are keyed by Index (day of month, month 1-12, or year).
type ChartPoint struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	Value     float64   `json:"value"`
}

// ChartSeries is an ordered, dense energy/power series. A MONTHLY series
// always has exactly 12 points.
type ChartSeries struct {
	Granularity Granularity  `json:"granularity"`
	Points      []ChartPoint `json:"points"`
}
