package api

import (
	"math"
	"time"

	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
)

// TimeLayout formats logger timestamps. Logger clocks carry no zone, so
// no offset is printed.
const TimeLayout = "2006-01-02T15:04:05"

// RecordView is the JSON form of a record: the timestamp plus one key per
// measurement. Non-finite measurements become null.
type RecordView map[string]any

// NewRecordView converts a record for JSON output
func NewRecordView(rec protocol.Record) RecordView {
	v := RecordView{"timestamp": rec.Time().Format(TimeLayout)}

	switch r := rec.(type) {
	case *protocol.LoggerStatus:
		v["solar_battery"] = finite(r.SolarBattery)
		v["lithium_battery"] = finite(r.LithiumBattery)
		v["wind_diag"] = finite(r.WindDiag)
		v["cf_card"] = r.CFCard
	case *protocol.WeatherSample:
		for i, f := range r.Fields() {
			v[protocol.WeatherFieldNames[i]] = finite(f)
		}
	}

	return v
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// Event is one message of the live feed
type Event struct {
	Station  string     `json:"station"`
	Kind     string     `json:"kind"`
	Received time.Time  `json:"received"`
	Record   RecordView `json:"record"`
}

// NewEvent wraps a record for the live feed
func NewEvent(station string, rec protocol.Record, received time.Time) Event {
	return Event{
		Station:  station,
		Kind:     rec.Kind().String(),
		Received: received,
		Record:   NewRecordView(rec),
	}
}

// StationView describes one station in the station list
type StationView struct {
	Name   string `json:"name"`
	Ports  []int  `json:"ports,omitempty"`
	Stored bool   `json:"stored"`
}

// LatestView holds the newest records of a station
type LatestView struct {
	Station      string     `json:"station"`
	LoggerStatus RecordView `json:"logger_status"`
	Weather      RecordView `json:"weather"`
}
