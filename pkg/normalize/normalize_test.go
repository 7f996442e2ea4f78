package normalize

import (
	"testing"
	"time"

	"github.com/solarfleet/solarfleet/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	assert.Equal(t, "-", Text(""))
	assert.Equal(t, "-", Text("   "))
	assert.Equal(t, "-", Text("null"))
	assert.Equal(t, "MIN 5000TL-X", Text(" MIN 5000TL-X "))
}

func TestFloat(t *testing.T) {
	assert.Equal(t, 12.5, Float("12.5"))
	assert.Equal(t, 12.5, Float("12,5"))
	assert.Equal(t, 3.2, Float("3.2 kWh"))
	assert.Equal(t, 0.0, Float("-"))
	assert.Equal(t, 0.0, Float(""))
	assert.Equal(t, 0.0, Float("NaN"))
}

func TestStatusMap(t *testing.T) {
	m := StatusMap{
		"1":     types.StatusProducing,
		"3":     types.StatusError,
		"FAULT": types.StatusError,
	}
	assert.Equal(t, types.StatusProducing, m.Status("1"))
	assert.Equal(t, types.StatusError, m.Status(" fault "))
	assert.Equal(t, types.StatusUnknown, m.Status("42"))
	assert.Equal(t, types.StatusUnknown, m.Status(""))
}

func TestWorst(t *testing.T) {
	assert.Equal(t, types.StatusUnknown, Worst())
	assert.Equal(t, types.StatusProducing, Worst(types.StatusUnknown, types.StatusProducing))
	assert.Equal(t, types.StatusError, Worst(types.StatusProducing, types.StatusError, types.StatusUnknown))
}

func TestTimestamp(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01T10:00:00-03:00", Timestamp("2024-03-01 10:00:00", loc))
	assert.Equal(t, "2024-03-01T13:00:00Z", Timestamp("2024-03-01T13:00:00Z", loc))
	assert.Equal(t, "2024-03-01T10:00:00-03:00", Timestamp("1709298000000", loc))
	assert.Equal(t, "2024-03-01T10:00:00-03:00", Timestamp("1709298000", loc))
	assert.Equal(t, "-", Timestamp("yesterday", loc))
	assert.Equal(t, "-", Timestamp("", loc))
	assert.Equal(t, "2024-03-01T10:00:00Z", Timestamp("2024-03-01 10:00:00", nil))
}

func TestFilterYear(t *testing.T) {
	entries := []types.ErrorLogEntry{
		{EventID: "a", Timestamp: "2023-12-31T23:59:00Z"},
		{EventID: "b", Timestamp: "2024-01-01T00:00:00Z"},
		{EventID: "c", Timestamp: "-"},
		{EventID: "d", Timestamp: "2024-07-10T08:00:00-03:00"},
		{EventID: "e", Timestamp: "2025-01-01T00:00:00Z"},
	}
	got := FilterYear(entries, 2024)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].EventID)
	assert.Equal(t, "d", got[1].EventID)

	none := FilterYear(entries, 1999)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestErrorLogEntryPlaceholders(t *testing.T) {
	e := ErrorLogEntry(types.ErrorLogEntry{EventName: "Grid overvoltage"})
	assert.Equal(t, "-", e.DeviceAlias)
	assert.Equal(t, "-", e.DeviceType)
	assert.Equal(t, "-", e.Serial)
	assert.Equal(t, "-", e.EventID)
	assert.Equal(t, "-", e.Timestamp)
	assert.Equal(t, NoSolution, e.Solution)
	assert.Equal(t, "Grid overvoltage", e.EventName)
}

func TestSnapshot(t *testing.T) {
	s := Snapshot(types.PlantSnapshot{
		Status:  types.Status(7),
		Devices: []types.DeviceRecord{{Serial: "SN1"}},
	})
	assert.Equal(t, types.StatusUnknown, s.Status)
	assert.Equal(t, "SN1", s.Device.Serial)
	assert.Equal(t, "-", s.Device.Model)
	assert.Equal(t, "-", s.Device.Firmware)
	assert.Equal(t, types.Placeholder, s.Device.LastUpdate)
	assert.Equal(t, "-", s.Weather.Condition)
	assert.NotNil(t, s.ErrorLog)

	empty := Snapshot(types.PlantSnapshot{})
	assert.NotNil(t, empty.Devices)
	assert.Equal(t, "-", empty.Device.Serial)

	kept := Snapshot(types.PlantSnapshot{Devices: []types.DeviceRecord{{Serial: "SN2", LastUpdate: "2024-03-01T10:00:00Z"}}})
	assert.Equal(t, "2024-03-01T10:00:00Z", kept.Devices[0].LastUpdate)
}

func TestSortErrorLog(t *testing.T) {
	entries := []types.ErrorLogEntry{
		{EventID: "old", Timestamp: "2024-01-01T00:00:00Z"},
		{EventID: "none", Timestamp: "-"},
		{EventID: "new", Timestamp: "2024-06-01T00:00:00Z"},
	}
	SortErrorLog(entries)
	assert.Equal(t, "new", entries[0].EventID)
	assert.Equal(t, "old", entries[1].EventID)
	assert.Equal(t, "none", entries[2].EventID)
}
