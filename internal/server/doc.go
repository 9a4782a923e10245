// Package server receives telemetry messages from the weather station
// loggers.
//
// Each station's logger dials a fixed TCP port through its Iridium modem,
// writes a single message and closes the connection. The port the logger
// connected to identifies the station. A message is a 48 byte modem
// preamble followed by a frame (see package protocol).
//
// # Listeners
//
// Server binds one listener per configured port and accepts on each of them
// in its own goroutine. Every accepted connection is handled in its own
// goroutine by a Handler, so a slow satellite upload never blocks other
// stations. Each listener admits at most Config.MaxConnections connections
// at a time; further connections wait in the kernel backlog.
//
// # Handling a connection
//
// The Handler reads until the logger closes its side. The read deadline is
// pushed forward after every read, so the connection is dropped only when
// the peer stays silent for ReadTimeout. Messages larger than
// MaxMessageSize cannot be valid and are rejected without reading further.
// The raw message is archived (if an Archiver is set), decoded, and every
// record is passed to the Sink together with the station name.
//
// Decode failures are logged and counted; they never affect the listener or
// other connections. A panic in a handler is recovered and logged.
//
// # Usage Example
//
//	handler := server.NewHandler(sink, cfg.StationName)
//	srv, err := server.New(&server.Config{
//	    Host:           "",
//	    Ports:          []int{2100, 2101},
//	    MaxConnections: 64,
//	}, handler)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until ctx is cancelled or a shutdown signal arrives
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// On SIGINT, SIGTERM or context cancellation the server:
//  1. Closes the listeners
//  2. Closes connections still being read
//  3. Waits up to 10 seconds for handlers to finish
package server
