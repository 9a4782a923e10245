// Package storage persists decoded telemetry records.
//
// Store writes logger status records to the logger_status table and weather
// samples to the weather_data table of a SQLite database, using a pool of
// connections so that concurrent connection handlers do not serialize on a
// single handle. NaN measurements are stored as NULL; infinities are kept
// as REAL values and read back unchanged.
//
// The package also defines the Sink interface that the ingest server hands
// records to, plus two small sinks: Multi fans out to several sinks and
// LogSink only logs.
package storage
