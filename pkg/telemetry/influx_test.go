package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarfleet/solarfleet/pkg/types"
)

func TestPoint(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Point(
		types.Plant{ID: "p1", Vendor: "sems"},
		types.PlantSnapshot{Status: types.StatusError, PowerKW: 1.5, Energy: types.EnergyTotals{TodayKWH: 3, TotalKWH: 900}},
		at,
	)
	assert.Equal(t, Measurement, p.Values.GetMeasurement())
	tag, ok := p.Values.GetTag("plant")
	require.True(t, ok)
	assert.Equal(t, "p1", tag)
	tag, ok = p.Values.GetTag("vendor")
	require.True(t, ok)
	assert.Equal(t, "sems", tag)
	require.NotNil(t, p.Values.GetIntegerField("status"))
	assert.EqualValues(t, -1, *p.Values.GetIntegerField("status"))
	assert.Equal(t, 900.0, *p.Values.GetDoubleField("e_total"))
	assert.Equal(t, 3.0, *p.Values.GetDoubleField("e_today"))
	assert.Equal(t, 1.5, *p.Values.GetDoubleField("power"))
	assert.Equal(t, at, p.Values.Timestamp)
}

func TestInfluxRecord(t *testing.T) {
	var body string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client, err := influxdb3.New(influxdb3.ClientConfig{Host: ts.URL, Token: "t", Database: "db"})
	require.NoError(t, err)
	sink := &LazySink{Sink: &Influx{client: client, timeout: time.Second}}

	err = sink.Record(context.Background(),
		types.Plant{ID: "p1", Vendor: "growatt"},
		types.PlantSnapshot{Status: types.StatusProducing, Energy: types.EnergyTotals{TotalKWH: 12}},
		time.Unix(1709294400, 0),
	)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(body, Measurement+","), body)
	assert.Contains(t, body, "plant=p1")
	assert.Contains(t, body, "vendor=growatt")
	assert.Contains(t, body, "status=1i")
	assert.Contains(t, body, " 1709294400000000000")
	assert.NoError(t, sink.Close())
}

func TestNopSink(t *testing.T) {
	sink := &LazySink{Sink: nopSink{}}
	assert.NoError(t, sink.Record(context.Background(), types.Plant{}, types.PlantSnapshot{}, time.Now()))
	assert.NoError(t, sink.Close())
}
