// Package telemetry records every successful plant poll as a time series
// point so production history can be charted outside the vendor clouds.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
	"github.com/levenlabs/go-lflag"

	"github.com/solarfleet/solarfleet/pkg/types"
)

// Measurement is the InfluxDB measurement polls are written to.
const Measurement = "plant_poll"

// Sink receives one record per successful poll.
type Sink interface {
	Record(ctx context.Context, plant types.Plant, snap types.PlantSnapshot, at time.Time) error
}

// Influx writes poll records to InfluxDB 3.
type Influx struct {
	client  *influxdb3.Client
	timeout time.Duration
}

// LazySink is the sink returned by Configured. Its backend is chosen inside
// lflag.Do, after the constructor has returned.
type LazySink struct {
	Sink
}

// Close releases the backend if it holds resources.
func (l *LazySink) Close() error {
	if c, ok := l.Sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Configured returns a sink writing to InfluxDB, or discarding records when
// influx-host is empty.
func Configured() *LazySink {
	host := lflag.String("influx-host", "", "InfluxDB 3 host URL, empty disables telemetry")
	token := lflag.String("influx-token", "", "InfluxDB 3 token")
	database := lflag.String("influx-database", "solarfleet", "InfluxDB 3 database")

	s := &LazySink{}
	lflag.Do(func() {
		if *host == "" {
			s.Sink = nopSink{}
			return
		}
		client, err := influxdb3.New(influxdb3.ClientConfig{
			Host:     *host,
			Token:    *token,
			Database: *database,
			WriteOptions: &influxdb3.WriteOptions{
				DefaultTags: map[string]string{"source": "solarfleet"},
			},
		})
		if err != nil {
			panic(fmt.Sprintf("influx client creation failed: %v", err))
		}
		s.Sink = &Influx{client: client, timeout: 10 * time.Second}
	})
	return s
}

// Point converts a poll into an InfluxDB point.
func Point(plant types.Plant, snap types.PlantSnapshot, at time.Time) *influxdb3.Point {
	return influxdb3.NewPointWithMeasurement(Measurement).
		SetTag("plant", plant.ID).
		SetTag("vendor", plant.Vendor).
		SetIntegerField("status", int64(snap.Status)).
		SetDoubleField("e_total", snap.Energy.TotalKWH).
		SetDoubleField("e_today", snap.Energy.TodayKWH).
		SetDoubleField("power", snap.PowerKW).
		SetTimestamp(at)
}

// Record writes one point.
func (i *Influx) Record(ctx context.Context, plant types.Plant, snap types.PlantSnapshot, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	if err := i.client.WritePoints(ctx, []*influxdb3.Point{Point(plant, snap, at)}); err != nil {
		return fmt.Errorf("failed to write poll point: %w", err)
	}
	return nil
}

// Close releases the client.
func (i *Influx) Close() error {
	return i.client.Close()
}

type nopSink struct{}

func (nopSink) Record(context.Context, types.Plant, types.PlantSnapshot, time.Time) error {
	return nil
}
