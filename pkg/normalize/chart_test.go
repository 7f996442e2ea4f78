package normalize

import (
	"testing"
	"time"

	"github.com/solarfleet/solarfleet/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(s types.ChartSeries) []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

func indexes(s types.ChartSeries) []int {
	out := make([]int, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Index
	}
	return out
}

func TestSparseMonthly(t *testing.T) {
	ref := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s := Sparse(types.GranularityMonthly, ref, map[int]float64{3: 120.5, 7: 90})
	require.Len(t, s.Points, 12)
	assert.Equal(t, types.GranularityMonthly, s.Granularity)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, indexes(s))
	assert.Equal(t, []float64{0, 0, 120.5, 0, 0, 0, 90, 0, 0, 0, 0, 0}, values(s))

	empty := Sparse(types.GranularityMonthly, ref, nil)
	require.Len(t, empty.Points, 12)
	for _, p := range empty.Points {
		assert.Zero(t, p.Value)
	}
}

func TestSparseDaily(t *testing.T) {
	s := Sparse(types.GranularityDaily, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), map[int]float64{29: 4})
	require.Len(t, s.Points, 29, "leap february")
	assert.Equal(t, 4.0, s.Points[28].Value)
}

func TestSparseYearly(t *testing.T) {
	s := Sparse(types.GranularityYearly, time.Now(), map[int]float64{2024: 3, 2022: 1, 2023: 2})
	assert.Equal(t, []int{2022, 2023, 2024}, indexes(s))
	assert.Equal(t, []float64{1, 2, 3}, values(s))
}

func TestIndexedMonthly(t *testing.T) {
	ref := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	short := Indexed(types.GranularityMonthly, ref, 1, nil, []float64{1, 2, 3})
	require.Len(t, short.Points, 12)
	assert.Equal(t, []float64{1, 2, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0}, values(short))

	long := Indexed(types.GranularityMonthly, ref, 1, nil, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13})
	require.Len(t, long.Points, 12, "values past december are dropped")
	assert.Equal(t, 12.0, long.Points[11].Value)
}

func TestIndexedIntraday(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	ref := time.Date(2024, 3, 1, 15, 0, 0, 0, loc)
	s := Indexed(types.GranularityIntraday, ref, 0, []string{"10:05", "10:00"}, []float64{2, 1})
	require.Len(t, s.Points, 2)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, loc), s.Points[0].Timestamp)
	assert.Equal(t, 1.0, s.Points[0].Value)
	assert.Equal(t, 605, s.Points[1].Index)
}

func TestPairs(t *testing.T) {
	ref := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Pairs(types.GranularityMonthly, ref, []Pair{{X: 11, Y: 5}, {X: 2, Y: 7}, {X: 5, Y: 1}})
	require.Len(t, s.Points, 12)
	assert.Equal(t, 7.0, s.Points[1].Value)
	assert.Equal(t, 1.0, s.Points[4].Value)
	assert.Equal(t, 5.0, s.Points[10].Value)

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC).UnixMilli()
	intraday := Pairs(types.GranularityIntraday, ref, []Pair{
		{X: base + 600000, Y: 3},
		{X: base, Y: 1},
		{X: base + 300000, Y: 2},
		{X: base + 300000, Y: 2.5},
	})
	require.Len(t, intraday.Points, 3)
	assert.Equal(t, []float64{1, 2.5, 3}, values(intraday))
	assert.Equal(t, []int{540, 545, 550}, indexes(intraday))
}
