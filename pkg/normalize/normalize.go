// Package normalize holds the pure functions that turn raw vendor values into
// the canonical model. Every function is total: missing or malformed input
// maps to a placeholder, never to an error.
package normalize

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/solarfleet/solarfleet/pkg/types"
)

// Text trims s and returns types.Placeholder when nothing is left.
func Text(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return types.Placeholder
	}
	return s
}

// Float parses a vendor number that may arrive as a string with a unit or a
// decimal comma. Anything unparseable is 0.
func Float(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, " kKwWhH%")
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Finite replaces NaN and infinities with 0.
func Finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// StatusMap maps a vendor's native state codes to the tri-state status.
// Keys are matched case-insensitively after trimming.
type StatusMap map[string]types.Status

// Status looks up code; unmapped codes are StatusUnknown.
func (m StatusMap) Status(code string) types.Status {
	code = strings.ToLower(strings.TrimSpace(code))
	for k, v := range m {
		if strings.ToLower(k) == code {
			return v
		}
	}
	return types.StatusUnknown
}

// Worst folds device states into a plant state: any error wins, then any
// producing device, otherwise unknown.
func Worst(states ...types.Status) types.Status {
	out := types.StatusUnknown
	for _, s := range states {
		switch s {
		case types.StatusError:
			return types.StatusError
		case types.StatusProducing:
			out = types.StatusProducing
		}
	}
	return out
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Timestamp converts a vendor timestamp into RFC 3339. Raw values may be a
// layout known to the package or epoch seconds/milliseconds. Zone-less
// layouts are read in loc. Unparseable input is types.Placeholder.
func Timestamp(raw string, loc *time.Location) string {
	t, ok := ParseTime(raw, loc)
	if !ok {
		return types.Placeholder
	}
	return t.Format(time.RFC3339)
}

// ParseTime is the parsing half of Timestamp.
func ParseTime(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		switch {
		case n > 1e12:
			return time.UnixMilli(n).In(loc), true
		case n > 1e9:
			return time.Unix(n, 0).In(loc), true
		default:
			return time.Time{}, false
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FilterYear keeps the entries whose normalized timestamp falls in year.
// The result is never nil.
func FilterYear(entries []types.ErrorLogEntry, year int) []types.ErrorLogEntry {
	out := make([]types.ErrorLogEntry, 0, len(entries))
	for _, e := range entries {
		if e.Year() == year {
			out = append(out, e)
		}
	}
	return out
}

// ErrorLogEntry fills every empty field of e with the placeholder. Solution
// gets its own wording since the UI shows it as a sentence.
func ErrorLogEntry(e types.ErrorLogEntry) types.ErrorLogEntry {
	e.DeviceAlias = Text(e.DeviceAlias)
	e.DeviceType = Text(e.DeviceType)
	e.Serial = Text(e.Serial)
	e.EventName = Text(e.EventName)
	e.EventID = Text(e.EventID)
	if strings.TrimSpace(e.Solution) == "" {
		e.Solution = NoSolution
	} else {
		e.Solution = strings.TrimSpace(e.Solution)
	}
	if e.Timestamp == "" {
		e.Timestamp = types.Placeholder
	}
	return e
}

// NoSolution is used when a vendor omits the recommended fix for an event.
const NoSolution = "No solution provided by the manufacturer"

// Device fills empty device fields with placeholders.
func Device(d types.DeviceRecord) types.DeviceRecord {
	d.Serial = Text(d.Serial)
	d.Model = Text(d.Model)
	d.Firmware = Text(d.Firmware)
	d.NominalPowerKW = Finite(d.NominalPowerKW)
	d.LastUpdate = Text(d.LastUpdate)
	return d
}

// Snapshot makes a snapshot safe to hand out: placeholders everywhere,
// non-nil slices, a valid status and Device set to the first device.
func Snapshot(s types.PlantSnapshot) types.PlantSnapshot {
	if !s.Status.Valid() {
		s.Status = types.StatusUnknown
	}
	if s.Devices == nil {
		s.Devices = []types.DeviceRecord{}
	}
	for i := range s.Devices {
		s.Devices[i] = Device(s.Devices[i])
	}
	if len(s.Devices) > 0 && s.Device.Serial == "" {
		s.Device = s.Devices[0]
	}
	s.Device = Device(s.Device)
	if s.ErrorLog == nil {
		s.ErrorLog = []types.ErrorLogEntry{}
	}
	for i := range s.ErrorLog {
		s.ErrorLog[i] = ErrorLogEntry(s.ErrorLog[i])
	}
	s.Weather.Condition = Text(s.Weather.Condition)
	s.Weather.TemperatureC = Finite(s.Weather.TemperatureC)
	s.PowerKW = Finite(s.PowerKW)
	s.Energy.TodayKWH = Finite(s.Energy.TodayKWH)
	s.Energy.MonthKWH = Finite(s.Energy.MonthKWH)
	s.Energy.TotalKWH = Finite(s.Energy.TotalKWH)
	return s
}

// SortErrorLog orders entries newest first, placeholders last.
func SortErrorLog(entries []types.ErrorLogEntry) {
	slices.SortStableFunc(entries, func(a, b types.ErrorLogEntry) int {
		ta, errA := time.Parse(time.RFC3339, a.Timestamp)
		tb, errB := time.Parse(time.RFC3339, b.Timestamp)
		switch {
		case errA != nil && errB != nil:
			return 0
		case errA != nil:
			return 1
		case errB != nil:
			return -1
		}
		return tb.Compare(ta)
	})
}
