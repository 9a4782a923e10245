package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/willi-kappler/iridium-weatherstation/internal/logging"
	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
)

// Sink receives every decoded record together with the station it came
// from. Implementations must be safe for concurrent use: each connection
// handler calls Store from its own goroutine.
type Sink interface {
	Store(ctx context.Context, station string, rec protocol.Record) error
}

// SinkFunc adapts an ordinary function to the Sink interface
type SinkFunc func(ctx context.Context, station string, rec protocol.Record) error

// Store calls f
func (f SinkFunc) Store(ctx context.Context, station string, rec protocol.Record) error {
	return f(ctx, station, rec)
}

// Multi fans a record out to several sinks. Every sink is tried; the
// failures are joined into one error.
type Multi []Sink

// Store implements Sink
func (m Multi) Store(ctx context.Context, station string, rec protocol.Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Store(ctx, station, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink logs each record at info level. It is used when no database is
// configured so that received data still shows up somewhere.
type LogSink struct{}

// Store implements Sink
func (LogSink) Store(_ context.Context, station string, rec protocol.Record) error {
	fields := []zap.Field{
		zap.String("station", station),
		zap.String("kind", rec.Kind().String()),
		zap.Time("timestamp", rec.Time()),
	}

	switch r := rec.(type) {
	case *protocol.LoggerStatus:
		fields = append(fields,
			zap.Float64("solar_battery", r.SolarBattery),
			zap.Float64("lithium_battery", r.LithiumBattery),
			zap.Float64("wind_diag", r.WindDiag),
			zap.Uint32("cf_card", r.CFCard),
		)
	case *protocol.WeatherSample:
		for i, v := range r.Fields() {
			fields = append(fields, zap.Float64(protocol.WeatherFieldNames[i], v))
		}
	default:
		return fmt.Errorf("unsupported record type %T", rec)
	}

	logging.Info("Record received", fields...)
	return nil
}
