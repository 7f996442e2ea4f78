package types

import "time"

// Placeholder is used for every textual field a vendor did not report.
const Placeholder = "-"

// DeviceRecord describes one inverter (or logger) in a plant.
type DeviceRecord struct {
	Serial         string  `json:"serial"`
	Model          string  `json:"model"`
	Firmware       string  `json:"firmware"`
	NominalPowerKW float64 `json:"nominalPowerKW"`
	// LastUpdate is RFC 3339 or Placeholder.
	LastUpdate string `json:"lastUpdate"`
}

// EnergyTotals are cumulative production counters in kWh.
type EnergyTotals struct {
	TodayKWH float64 `json:"todayKWH"`
	MonthKWH float64 `json:"monthKWH"`
	TotalKWH float64 `json:"totalKWH"`
}

// Weather is the vendor's weather summary for the plant location.
type Weather struct {
	Condition    string  `json:"condition"`
	TemperatureC float64 `json:"temperatureC"`
}

// ErrorLogEntry is one alarm/event reported by a vendor.
type ErrorLogEntry struct {
	DeviceAlias string `json:"deviceAlias"`
	DeviceType  string `json:"deviceType"`
	Serial      string `json:"serial"`
	// Timestamp is ISO-8601 (RFC 3339) or Placeholder when unparseable.
	Timestamp string `json:"timestamp"`
	EventName string `json:"eventName"`
	EventID   string `json:"eventID"`
	Solution  string `json:"solution"`
}

// Year returns the calendar year of the entry or 0 when the timestamp is a
// placeholder.
func (e ErrorLogEntry) Year() int {
	t, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return 0
	}
	return t.Year()
}

// PlantSnapshot is the normalized result of polling a plant once.
type PlantSnapshot struct {
	Status   Status          `json:"status"`
	Device   DeviceRecord    `json:"device"`
	Devices  []DeviceRecord  `json:"devices"`
	PowerKW  float64         `json:"powerKW"`
	Energy   EnergyTotals    `json:"energy"`
	Weather  Weather         `json:"weather"`
	ErrorLog []ErrorLogEntry `json:"errorLog"`
}
