// Package api serves the HTTP interface of the ingest service.
//
// Routes:
//
//	GET /metrics                          Prometheus metrics
//	GET /api/stations                     configured and stored stations
//	GET /api/stations/{station}/latest    newest logger status and weather sample
//	GET /api/stations/{station}/weather   weather samples, ?from=&to=
//	GET /api/feed                         websocket stream of incoming records
//
// Measurements that are not finite are rendered as null. The Hub is a sink
// of the ingest server; every record it receives is pushed to the feed
// clients as an Event.
package api
