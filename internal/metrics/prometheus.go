package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the ingest server
type Metrics struct {
	registry *prometheus.Registry

	// Listener metrics
	ListenersUp         prometheus.Gauge
	ConnectionsAccepted *prometheus.CounterVec
	ActiveConnections   *prometheus.GaugeVec
	BytesReceived       *prometheus.CounterVec
	MessageSize         prometheus.Histogram

	// Decoding metrics
	RecordsDecoded  *prometheus.CounterVec
	DecodeErrors    *prometheus.CounterVec
	LastRecordTime  *prometheus.GaugeVec
	HandlerDuration prometheus.Histogram

	// Sink metrics
	SinkErrors   *prometheus.CounterVec
	FeedClients  prometheus.Gauge
	FeedsDropped prometheus.Counter

	// HTTP API metrics
	HTTPRequests *prometheus.CounterVec
}

// New creates all metrics on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ListenersUp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "iridium_listeners_up",
			Help: "Number of ports currently accepting connections",
		}),
		ConnectionsAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iridium_connections_accepted_total",
			Help: "Total number of accepted logger connections",
		}, []string{"station"}),
		ActiveConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "iridium_active_connections",
			Help: "Current number of open logger connections",
		}, []string{"station"}),
		BytesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iridium_bytes_received_total",
			Help: "Total number of bytes received from loggers",
		}, []string{"station"}),
		MessageSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "iridium_message_size_bytes",
			Help:    "Size of received messages including the preamble",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10), // 64B to 32KB
		}),

		RecordsDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iridium_records_decoded_total",
			Help: "Total number of decoded records",
		}, []string{"station", "kind"}),
		DecodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iridium_decode_errors_total",
			Help: "Total number of messages that could not be decoded",
		}, []string{"station", "error"}),
		LastRecordTime: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "iridium_last_record_timestamp_seconds",
			Help: "Logger timestamp of the most recent record, as seconds since 1970",
		}, []string{"station", "kind"}),
		HandlerDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "iridium_connection_duration_seconds",
			Help:    "Time from accept to close of a logger connection",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8), // 10ms to ~3 minutes
		}),

		SinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iridium_sink_errors_total",
			Help: "Total number of records a sink failed to store",
		}, []string{"station"}),
		FeedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "iridium_feed_clients",
			Help: "Current number of live feed subscribers",
		}),
		FeedsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "iridium_feed_clients_dropped_total",
			Help: "Total number of live feed subscribers dropped for falling behind",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iridium_http_requests_total",
			Help: "Total number of HTTP API requests",
		}, []string{"route", "method"}),
	}
}

// Registry returns the registry holding all metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
