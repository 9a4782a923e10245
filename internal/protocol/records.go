package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Payload sizes
const (
	ulongLength = 4
	fp2Length   = 2

	// LoggerStatusLength is the short logger status: timestamp, reserved, three FP2 values
	LoggerStatusLength = 2*ulongLength + 3*fp2Length // 14

	// LoggerStatusExtLength adds the big-endian CF card counter
	LoggerStatusExtLength = LoggerStatusLength + ulongLength // 18

	// WeatherSampleLength is one weather chunk: timestamp, reserved, ten FP2 values
	WeatherSampleLength = 2*ulongLength + WeatherFieldCount*fp2Length // 28

	// WeatherFieldCount is the number of FP2 measurements in a weather sample
	WeatherFieldCount = 10
)

// RecordKind identifies the concrete type behind a Record
type RecordKind int

const (
	KindLoggerStatus RecordKind = iota + 1
	KindWeatherSample
)

// String returns the kind name used in logs, metrics and the JSON feed
func (k RecordKind) String() string {
	switch k {
	case KindLoggerStatus:
		return "logger_status"
	case KindWeatherSample:
		return "weather"
	default:
		return fmt.Sprintf("RecordKind(%d)", int(k))
	}
}

// Record is a decoded logger status or weather sample. Callers type-switch
// on *LoggerStatus and *WeatherSample.
type Record interface {
	Kind() RecordKind
	Time() time.Time
}

// LoggerStatus is the logger's housekeeping sample
type LoggerStatus struct {
	Timestamp      time.Time
	SolarBattery   float64
	LithiumBattery float64
	WindDiag       float64
	CFCard         uint32 // 0 when the short variant was received
}

// Kind implements Record
func (s *LoggerStatus) Kind() RecordKind { return KindLoggerStatus }

// Time implements Record
func (s *LoggerStatus) Time() time.Time { return s.Timestamp }

// WeatherSample is one time-stamped set of weather measurements
type WeatherSample struct {
	Timestamp           time.Time
	AirTemperature      float64
	AirRelativeHumidity float64
	SolarRadiation      float64
	SoilWaterContent    float64
	SoilTemperature     float64
	WindSpeed           float64
	WindMax             float64
	WindDirection       float64
	Precipitation       float64
	AirPressure         float64
}

// Kind implements Record
func (w *WeatherSample) Kind() RecordKind { return KindWeatherSample }

// Time implements Record
func (w *WeatherSample) Time() time.Time { return w.Timestamp }

// WeatherFieldNames lists the measurement names in wire order
var WeatherFieldNames = [WeatherFieldCount]string{
	"air_temperature",
	"air_relative_humidity",
	"solar_radiation",
	"soil_water_content",
	"soil_temperature",
	"wind_speed",
	"wind_max",
	"wind_direction",
	"precipitation",
	"air_pressure",
}

// Fields returns the measurements in wire order
func (w *WeatherSample) Fields() [WeatherFieldCount]float64 {
	return [WeatherFieldCount]float64{
		w.AirTemperature,
		w.AirRelativeHumidity,
		w.SolarRadiation,
		w.SoilWaterContent,
		w.SoilTemperature,
		w.WindSpeed,
		w.WindMax,
		w.WindDirection,
		w.Precipitation,
		w.AirPressure,
	}
}

// SetFields assigns the measurements from wire order
func (w *WeatherSample) SetFields(f [WeatherFieldCount]float64) {
	w.AirTemperature = f[0]
	w.AirRelativeHumidity = f[1]
	w.SolarRadiation = f[2]
	w.SoilWaterContent = f[3]
	w.SoilTemperature = f[4]
	w.WindSpeed = f[5]
	w.WindMax = f[6]
	w.WindDirection = f[7]
	w.Precipitation = f[8]
	w.AirPressure = f[9]
}

// DecodePayload classifies a payload by its length and decodes it:
//
//	14 bytes            short logger status
//	18 bytes            extended logger status with CF card counter
//	n * 28 bytes        n weather samples, in input order
//
// Any other length is an IOError naming the chunk that ran short.
func DecodePayload(payload []byte) ([]Record, error) {
	n := len(payload)

	switch {
	case n == LoggerStatusLength, n == LoggerStatusExtLength:
		status, err := DecodeLoggerStatus(payload)
		if err != nil {
			return nil, err
		}
		return []Record{status}, nil

	case n > 0 && n%WeatherSampleLength == 0:
		records := make([]Record, 0, n/WeatherSampleLength)
		for offset := 0; offset < n; offset += WeatherSampleLength {
			sample, err := DecodeWeatherSample(payload[offset : offset+WeatherSampleLength])
			if err != nil {
				return nil, err
			}
			records = append(records, sample)
		}
		return records, nil

	default:
		chunk := n / WeatherSampleLength
		return nil, NewIOError(fmt.Errorf("weather chunk %d has %d of %d bytes: %w",
			chunk, n%WeatherSampleLength, WeatherSampleLength, io.ErrUnexpectedEOF))
	}
}

// DecodeLoggerStatus decodes a short (14 byte) or extended (18 byte) logger status
func DecodeLoggerStatus(buf []byte) (*LoggerStatus, error) {
	if len(buf) < LoggerStatusLength {
		return nil, NewIOError(fmt.Errorf("logger status has %d of %d bytes: %w",
			len(buf), LoggerStatusLength, io.ErrUnexpectedEOF))
	}

	status := &LoggerStatus{
		Timestamp:      DecodeTimestamp(binary.LittleEndian.Uint32(buf[0:4])),
		SolarBattery:   DecodeFP2(binary.BigEndian.Uint16(buf[8:10])),
		LithiumBattery: DecodeFP2(binary.BigEndian.Uint16(buf[10:12])),
		WindDiag:       DecodeFP2(binary.BigEndian.Uint16(buf[12:14])),
	}

	if len(buf) >= LoggerStatusExtLength {
		status.CFCard = binary.BigEndian.Uint32(buf[14:18])
	}

	return status, nil
}

// DecodeWeatherSample decodes a single 28 byte weather chunk
func DecodeWeatherSample(buf []byte) (*WeatherSample, error) {
	if len(buf) < WeatherSampleLength {
		return nil, NewIOError(fmt.Errorf("weather sample has %d of %d bytes: %w",
			len(buf), WeatherSampleLength, io.ErrUnexpectedEOF))
	}

	var fields [WeatherFieldCount]float64
	for i := range fields {
		offset := 2*ulongLength + i*fp2Length
		fields[i] = DecodeFP2(binary.BigEndian.Uint16(buf[offset : offset+fp2Length]))
	}

	sample := &WeatherSample{
		Timestamp: DecodeTimestamp(binary.LittleEndian.Uint32(buf[0:4])),
	}
	sample.SetFields(fields)

	return sample, nil
}
