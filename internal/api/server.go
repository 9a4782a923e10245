package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/willi-kappler/iridium-weatherstation/internal/logging"
	"github.com/willi-kappler/iridium-weatherstation/internal/metrics"
	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
	"github.com/willi-kappler/iridium-weatherstation/internal/storage"
)

// DefaultRange is the window of the weather query when no bounds are given
const DefaultRange = 24 * time.Hour

// Store is the read side of the record database
type Store interface {
	Stations(ctx context.Context) ([]string, error)
	LatestLoggerStatus(ctx context.Context, station string) (*protocol.LoggerStatus, error)
	LatestWeather(ctx context.Context, station string) (*protocol.WeatherSample, error)
	WeatherRange(ctx context.Context, station string, from, to time.Time) ([]*protocol.WeatherSample, error)
}

// Options configures the API server
type Options struct {
	// Store serves the query endpoints. When nil they reply 503.
	Store Store

	// Hub feeds /api/feed
	Hub *Hub

	Metrics *metrics.Metrics

	// Stations is the configured port table
	Stations map[int]string
}

// Server is the HTTP API of the ingest service
type Server struct {
	*mux.Router
	store    Store
	hub      *Hub
	metrics  *metrics.Metrics
	stations map[int]string
}

// NewServer builds the router
func NewServer(opts Options) *Server {
	s := &Server{
		store:    opts.Store,
		hub:      opts.Hub,
		metrics:  opts.Metrics,
		stations: opts.Stations,
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.hub == nil {
		s.hub = NewHub(s.metrics)
	}
	s.configureRouter()
	return s
}

func (s *Server) configureRouter() {
	s.Router = mux.NewRouter()
	s.Router.Use(s.countRequests)
	s.Router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/stations", s.handleStations()).Methods("GET")
	subRouter.HandleFunc("/stations/{station}/latest", s.handleLatest()).Methods("GET")
	subRouter.HandleFunc("/stations/{station}/weather", s.handleWeather()).Methods("GET")
	subRouter.HandleFunc("/feed", s.handleFeed()).Methods("GET")
}

// Handler returns the router wrapped with access logging and panic recovery
func (s *Server) Handler() http.Handler {
	httpLogger := logging.GetLogger().Named("http")
	accessLog := zap.NewStdLog(httpLogger).Writer()

	options := []handlers.RecoveryOption{handlers.PrintRecoveryStack(true)}
	if panicLog, err := zap.NewStdLogAt(httpLogger, zapcore.ErrorLevel); err == nil {
		options = append(options, handlers.RecoveryLogger(panicLog))
	}

	recovery := handlers.RecoveryHandler(options...)
	return recovery(handlers.CombinedLoggingHandler(accessLog, s.Router))
}

// ListenAndServe serves the API on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// Hijacked feed connections are not tracked by http.Server
		s.hub.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn("API server shutdown", zap.Error(err))
		}
	}()

	logging.Info("Starting API server", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.HTTPRequests.WithLabelValues(route, r.Method).Inc()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		byName := make(map[string]*StationView)
		view := func(name string) *StationView {
			v, ok := byName[name]
			if !ok {
				v = &StationView{Name: name}
				byName[name] = v
			}
			return v
		}

		for port, name := range s.stations {
			v := view(name)
			v.Ports = append(v.Ports, port)
		}

		if s.store != nil {
			stored, err := s.store.Stations(r.Context())
			if err != nil {
				s.internalError(w, r, err)
				return
			}
			for _, name := range stored {
				view(name).Stored = true
			}
		}

		list := make([]StationView, 0, len(byName))
		for _, v := range byName {
			sort.Ints(v.Ports)
			list = append(list, *v)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

		writeJSON(w, http.StatusOK, list)
	}
}

func (s *Server) handleLatest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireStore(w) {
			return
		}
		station := mux.Vars(r)["station"]
		latest := LatestView{Station: station}

		status, err := s.store.LatestLoggerStatus(r.Context(), station)
		switch {
		case err == nil:
			latest.LoggerStatus = NewRecordView(status)
		case !errors.Is(err, storage.ErrNotFound):
			s.internalError(w, r, err)
			return
		}

		weather, err := s.store.LatestWeather(r.Context(), station)
		switch {
		case err == nil:
			latest.Weather = NewRecordView(weather)
		case !errors.Is(err, storage.ErrNotFound):
			s.internalError(w, r, err)
			return
		}

		if latest.LoggerStatus == nil && latest.Weather == nil {
			http.Error(w, fmt.Sprintf("Station %s has no records", station), http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, latest)
	}
}

// handleWeather returns samples with from <= timestamp < to. Both bounds
// use TimeLayout; to defaults to now and from to DefaultRange before to.
func (s *Server) handleWeather() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireStore(w) {
			return
		}
		station := mux.Vars(r)["station"]
		query := r.URL.Query()

		to := time.Now().UTC().Truncate(time.Second)
		if v := query.Get("to"); v != "" {
			t, err := time.Parse(TimeLayout, v)
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid to: %v", err), http.StatusBadRequest)
				return
			}
			to = t
		}

		from := to.Add(-DefaultRange)
		if v := query.Get("from"); v != "" {
			t, err := time.Parse(TimeLayout, v)
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid from: %v", err), http.StatusBadRequest)
				return
			}
			from = t
		}

		if !from.Before(to) {
			http.Error(w, "from must be before to", http.StatusBadRequest)
			return
		}

		samples, err := s.store.WeatherRange(r.Context(), station, from, to)
		if err != nil {
			s.internalError(w, r, err)
			return
		}

		views := make([]RecordView, len(samples))
		for i, sample := range samples {
			views[i] = NewRecordView(sample)
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		http.Error(w, "No database configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logging.Error("API request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	http.Error(w, "Internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}
