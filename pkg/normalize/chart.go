package normalize

import (
	"slices"
	"time"

	"github.com/solarfleet/solarfleet/pkg/types"
)

// Pair is an (x, y) sample as some vendors return them. For intraday charts
// X is epoch milliseconds; otherwise it is the bucket index.
type Pair struct {
	X int64
	Y float64
}

// Sparse builds a dense series from per-bucket records keyed by index.
// MONTHLY always yields indexes 1..12 and DAILY 1..days-in-month of ref;
// missing buckets are 0. YEARLY keeps only the reported years, ascending.
// INTRADAY keys are treated as minutes after midnight of ref.
func Sparse(g types.Granularity, ref time.Time, records map[int]float64) types.ChartSeries {
	series := types.ChartSeries{Granularity: g, Points: []types.ChartPoint{}}
	switch g {
	case types.GranularityMonthly:
		for m := 1; m <= 12; m++ {
			series.Points = append(series.Points, types.ChartPoint{Index: m, Value: Finite(records[m])})
		}
	case types.GranularityDaily:
		for d := 1; d <= daysIn(ref); d++ {
			series.Points = append(series.Points, types.ChartPoint{Index: d, Value: Finite(records[d])})
		}
	case types.GranularityIntraday:
		midnight := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
		for _, k := range sortedKeys(records) {
			series.Points = append(series.Points, types.ChartPoint{
				Index:     k,
				Timestamp: midnight.Add(time.Duration(k) * time.Minute),
				Value:     Finite(records[k]),
			})
		}
	default:
		for _, k := range sortedKeys(records) {
			series.Points = append(series.Points, types.ChartPoint{Index: k, Value: Finite(records[k])})
		}
	}
	return series
}

// Indexed builds a series from an index-aligned array where values[i] is the
// bucket firstIndex+i. For INTRADAY, labels[i] holds the "15:04" time of day;
// a missing label falls back to i*5 minutes after midnight.
func Indexed(g types.Granularity, ref time.Time, firstIndex int, labels []string, values []float64) types.ChartSeries {
	if g == types.GranularityIntraday {
		midnight := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
		series := types.ChartSeries{Granularity: g, Points: make([]types.ChartPoint, 0, len(values))}
		for i, v := range values {
			offset := time.Duration(i*5) * time.Minute
			if i < len(labels) {
				if hm, err := time.Parse("15:04", labels[i]); err == nil {
					offset = time.Duration(hm.Hour())*time.Hour + time.Duration(hm.Minute())*time.Minute
				}
			}
			series.Points = append(series.Points, types.ChartPoint{
				Index:     int(offset / time.Minute),
				Timestamp: midnight.Add(offset),
				Value:     Finite(v),
			})
		}
		slices.SortStableFunc(series.Points, func(a, b types.ChartPoint) int { return a.Index - b.Index })
		return series
	}
	records := make(map[int]float64, len(values))
	for i, v := range values {
		records[firstIndex+i] = v
	}
	return Sparse(g, ref, records)
}

// Pairs sorts unordered (x, y) samples by x and projects them into a series.
// Duplicate x values keep the last sample.
func Pairs(g types.Granularity, ref time.Time, pairs []Pair) types.ChartSeries {
	sorted := slices.Clone(pairs)
	slices.SortStableFunc(sorted, func(a, b Pair) int {
		switch {
		case a.X < b.X:
			return -1
		case a.X > b.X:
			return 1
		}
		return 0
	})
	if g != types.GranularityIntraday {
		records := make(map[int]float64, len(sorted))
		for _, p := range sorted {
			records[int(p.X)] = p.Y
		}
		return Sparse(g, ref, records)
	}
	series := types.ChartSeries{Granularity: g, Points: make([]types.ChartPoint, 0, len(sorted))}
	loc := ref.Location()
	for i, p := range sorted {
		if i > 0 && sorted[i-1].X == p.X {
			series.Points[len(series.Points)-1].Value = Finite(p.Y)
			continue
		}
		ts := time.UnixMilli(p.X).In(loc)
		series.Points = append(series.Points, types.ChartPoint{
			Index:     ts.Hour()*60 + ts.Minute(),
			Timestamp: ts,
			Value:     Finite(p.Y),
		})
	}
	return series
}

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
