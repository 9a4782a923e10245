// Package logging provides structured logging for the iridium ingest server.
//
// This package wraps a zap logger with package-level convenience functions
// so that listeners, connection handlers and sinks share one configured
// logger without passing it around.
//
// # Log Levels
//
//   - Debug: hex dumps of received messages, every decoded record
//   - Info: connections, stored records, heartbeat
//   - Warn: rejected connections, sink retries
//   - Error: decode failures, bind failures
//
// # Structured Logging
//
//	logging.Info("Records stored",
//	    zap.String("station", "Nahuelbuta"),
//	    zap.Int("count", 24),
//	)
//
// # Configuration
//
//	if err := logging.InitializeWithFile("info", "/var/log/iridium.log"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given the IRIDIUM_LOG_LEVEL environment variable is
// consulted; if that is empty too the logger is a no-op.
//
// All logging functions are safe for concurrent use.
package logging
