package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/willi-kappler/iridium-weatherstation/internal/logging"
)

// DefaultHeartbeatInterval is how often the alive line is logged by default
const DefaultHeartbeatInterval = 4 * time.Hour

// RunHeartbeat logs an alive line with the server's counters every interval
// until ctx is cancelled. An interval of zero or less disables it.
func (s *Server) RunHeartbeat(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logAlive()
		}
	}
}

func (s *Server) logAlive() {
	stats := s.handler.Stats
	logging.Info("Server alive",
		zap.Duration("uptime", s.Uptime().Truncate(time.Second)),
		zap.Int("listeners", len(s.listeners)),
		zap.Int("active_connections", s.GetActiveConnections()),
		zap.Int64("connections", stats.Connections.Load()),
		zap.Int64("messages", stats.Messages.Load()),
		zap.Int64("records", stats.Records.Load()),
		zap.Int64("errors", stats.Errors.Load()),
	)
}
