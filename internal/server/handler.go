package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/willi-kappler/iridium-weatherstation/internal/config"
	"github.com/willi-kappler/iridium-weatherstation/internal/logging"
	"github.com/willi-kappler/iridium-weatherstation/internal/metrics"
	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
	"github.com/willi-kappler/iridium-weatherstation/internal/storage"
)

// MaxMessageSize is the largest message that can possibly validate: the
// preamble, the frame header and a payload of the largest declarable length.
const MaxMessageSize = protocol.PreambleLength + protocol.FrameHeaderLength + protocol.MaxPayloadLength

// Archiver keeps raw messages before they are decoded
type Archiver interface {
	Put(station string, received time.Time, raw []byte) error
}

// StationResolver maps the local port a logger connected to onto its station name
type StationResolver func(port int) string

// Stats counts what the handler has processed since start
type Stats struct {
	Connections atomic.Int64
	Messages    atomic.Int64
	Records     atomic.Int64
	Errors      atomic.Int64
}

// Handler processes one logger connection: it reads the whole message,
// archives it, decodes it and hands each record to the sink. Decoding
// failures are logged and never affect other connections.
//
// NewHandler is the usual constructor. A Handler literal needs only Sink;
// unset Stations, Metrics and Stats are filled in on first use.
type Handler struct {
	Sink        storage.Sink
	Archive     Archiver // optional
	Stations    StationResolver
	Metrics     *metrics.Metrics
	ReadTimeout time.Duration
	Stats       *Stats

	defaults sync.Once
}

// DefaultReadTimeout is used when a Handler has no ReadTimeout
const DefaultReadTimeout = 60 * time.Second

// NewHandler creates a Handler with fresh metrics and counters.
func NewHandler(sink storage.Sink, stations StationResolver) *Handler {
	return &Handler{
		Sink:        sink,
		Stations:    stations,
		Metrics:     metrics.New(),
		ReadTimeout: DefaultReadTimeout,
		Stats:       &Stats{},
	}
}

// setDefaults completes a Handler built as a literal
func (h *Handler) setDefaults() {
	h.defaults.Do(func() {
		if h.Stations == nil {
			h.Stations = func(int) string { return config.UnknownStation }
		}
		if h.Metrics == nil {
			h.Metrics = metrics.New()
		}
		if h.Stats == nil {
			h.Stats = &Stats{}
		}
	})
}

// Handle reads conn to EOF and processes the message. The returned error
// is informational; it has already been logged.
func (h *Handler) Handle(ctx context.Context, conn net.Conn) error {
	h.setDefaults()
	start := time.Now()
	remoteAddr := conn.RemoteAddr().String()
	station := h.station(conn)

	h.Stats.Connections.Add(1)
	h.Metrics.ConnectionsAccepted.WithLabelValues(station).Inc()
	h.Metrics.ActiveConnections.WithLabelValues(station).Inc()
	logging.LogConnection(remoteAddr, station, "connection_accepted")

	defer func() {
		h.Metrics.ActiveConnections.WithLabelValues(station).Dec()
		h.Metrics.HandlerDuration.Observe(time.Since(start).Seconds())
		logging.LogConnection(remoteAddr, station, "connection_closed")
	}()

	raw, err := h.readMessage(conn)
	h.Metrics.BytesReceived.WithLabelValues(station).Add(float64(len(raw)))
	if err != nil {
		return h.fail(remoteAddr, station, err, raw)
	}

	h.Stats.Messages.Add(1)
	h.Metrics.MessageSize.Observe(float64(len(raw)))
	logging.LogRawBytes("Message received", raw)

	if h.Archive != nil {
		if err := h.Archive.Put(station, start, raw); err != nil {
			logging.Error("Failed to archive message",
				zap.String("station", station),
				zap.Error(err),
			)
		}
	}

	records, err := protocol.DecodeMessage(raw)
	if err != nil {
		return h.fail(remoteAddr, station, err, raw)
	}

	for _, rec := range records {
		h.Stats.Records.Add(1)
		h.Metrics.RecordsDecoded.WithLabelValues(station, rec.Kind().String()).Inc()
		h.Metrics.LastRecordTime.WithLabelValues(station, rec.Kind().String()).Set(float64(rec.Time().Unix()))

		if err := h.Sink.Store(ctx, station, rec); err != nil {
			h.Metrics.SinkErrors.WithLabelValues(station).Inc()
			logging.Error("Failed to store record",
				zap.String("station", station),
				zap.String("kind", rec.Kind().String()),
				zap.Time("timestamp", rec.Time()),
				zap.Error(err),
			)
		}
	}

	logging.Info("Message decoded",
		zap.String("remote_addr", remoteAddr),
		zap.String("station", station),
		zap.Int("length", len(raw)),
		zap.Int("records", len(records)),
	)

	return nil
}

func (h *Handler) fail(remoteAddr, station string, err error, raw []byte) error {
	h.Stats.Errors.Add(1)
	h.Metrics.DecodeErrors.WithLabelValues(station, protocol.KindOf(err).String()).Inc()
	logging.LogDecodeError(remoteAddr, station, err, raw)
	return err
}

func (h *Handler) station(conn net.Conn) string {
	port := 0
	if addr, ok := conn.LocalAddr().(*net.TCPAddr); ok {
		port = addr.Port
	}
	return h.Stations(port)
}

// readMessage reads until the logger closes its side. Each read gets a
// fresh deadline, so a slow satellite link is fine as long as data keeps
// arriving; a silent peer is dropped after ReadTimeout.
func (h *Handler) readMessage(conn net.Conn) ([]byte, error) {
	timeout := h.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	r := io.LimitReader(&deadlineReader{conn: conn, timeout: timeout}, MaxMessageSize+1)

	raw, err := io.ReadAll(r)
	if err != nil {
		return raw, protocol.NewIOError(err)
	}
	if len(raw) > MaxMessageSize {
		return raw[:MaxMessageSize], protocol.NewIOError(fmt.Errorf("message exceeds %d bytes", MaxMessageSize))
	}
	return raw, nil
}

type deadlineReader struct {
	conn    net.Conn
	timeout time.Duration
}

// Read refreshes the deadline before every read. A refresh can fail once
// the peer has closed (net.Pipe does this); the read then reports EOF.
func (r *deadlineReader) Read(p []byte) (int, error) {
	_ = r.conn.SetReadDeadline(time.Now().Add(r.timeout))
	return r.conn.Read(p)
}
