// Package traffic builds synthetic logger messages and sends them to an
// ingest server, the way a station logger would.
package traffic

import (
	"context"
	"fmt"
	"math"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/willi-kappler/iridium-weatherstation/internal/logging"
	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
)

// Message kinds accepted by Generate
const (
	KindStatus    = "status"
	KindStatusExt = "status-ext"
	KindWeather   = "weather"
)

// SampleInterval is the spacing of generated weather samples
const SampleInterval = 10 * time.Minute

// MaxSamples is the most weather samples that fit into one frame
const MaxSamples = protocol.MaxPayloadLength / protocol.WeatherSampleLength

// Generate builds a complete wire message. For weather, count samples are
// generated ending at start; status messages ignore count.
func Generate(kind string, count int, start time.Time) ([]byte, error) {
	var payload []byte

	switch kind {
	case KindStatus, KindStatusExt:
		status := &protocol.LoggerStatus{
			Timestamp:      start,
			SolarBattery:   13.26,
			LithiumBattery: 3.58,
			WindDiag:       0,
			CFCard:         uint32(start.Unix() % 1000),
		}
		payload = status.Marshal(kind == KindStatusExt)

	case KindWeather:
		if count < 1 || count > MaxSamples {
			return nil, fmt.Errorf("count must be between 1 and %d, got %d", MaxSamples, count)
		}
		samples := make([]*protocol.WeatherSample, count)
		for i := range samples {
			ts := start.Add(-time.Duration(count-1-i) * SampleInterval)
			samples[i] = Sample(ts)
		}
		payload = protocol.MarshalWeatherSamples(samples)

	default:
		return nil, fmt.Errorf("unknown message kind %q (must be one of: %s, %s, %s)", kind, KindStatus, KindStatusExt, KindWeather)
	}

	return protocol.BuildMessage(nil, payload)
}

// Sample returns plausible weather values following a daily cycle. The
// values are exactly representable in FP2 so they survive a round trip.
func Sample(ts time.Time) *protocol.WeatherSample {
	hour := float64(ts.Hour()) + float64(ts.Minute())/60
	day := math.Sin((hour - 9) / 24 * 2 * math.Pi)

	round := func(v float64, scale float64) float64 {
		return math.Round(v*scale) / scale
	}

	return &protocol.WeatherSample{
		Timestamp:           ts,
		AirTemperature:      round(14+8*day, 100),
		AirRelativeHumidity: round(70-20*day, 10),
		SolarRadiation:      round(math.Max(0, 900*day), 1),
		SoilWaterContent:    0.048,
		SoilTemperature:     round(16+3*day, 100),
		WindSpeed:           round(4+2*day, 100),
		WindMax:             round(7+3*day, 100),
		WindDirection:       258.5,
		Precipitation:       0,
		AirPressure:         978,
	}
}

// Send dials addr, writes msg and closes the connection
func Send(ctx context.Context, addr string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	if _, err := conn.Write(msg); err != nil {
		return fmt.Errorf("failed to send to %s: %w", addr, err)
	}

	logging.Debug("Message sent",
		zap.String("addr", addr),
		zap.Int("length", len(msg)),
	)
	return nil
}
