package api

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/willi-kappler/iridium-weatherstation/internal/metrics"
	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
	"github.com/willi-kappler/iridium-weatherstation/internal/storage"
)

var baseTime = time.Date(2022, 4, 3, 13, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "api.db"), PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestServer(t *testing.T, store Store) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(Options{
		Store:    store,
		Metrics:  metrics.New(),
		Stations: map[int]string{2100: "Nahuelbuta", 2101: "Santa_Gracia", 2001: "test1", 2002: "test1"},
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string, wantStatus int, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, wantStatus, resp.StatusCode)
	if v != nil {
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
}

func TestStations(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.Store(ctx, "Nahuelbuta", &protocol.LoggerStatus{Timestamp: baseTime, SolarBattery: 13.2}))
	require.NoError(t, store.Store(ctx, "unknown", &protocol.LoggerStatus{Timestamp: baseTime}))

	_, ts := newTestServer(t, store)

	var list []StationView
	getJSON(t, ts.URL+"/api/stations", http.StatusOK, &list)

	require.Equal(t, []StationView{
		{Name: "Nahuelbuta", Ports: []int{2100}, Stored: true},
		{Name: "Santa_Gracia", Ports: []int{2101}},
		{Name: "test1", Ports: []int{2001, 2002}},
		{Name: "unknown", Stored: true},
	}, list)
}

func TestLatest(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.Store(ctx, "Nahuelbuta", &protocol.LoggerStatus{
		Timestamp: baseTime, SolarBattery: 13.26, LithiumBattery: 3.58, WindDiag: math.NaN(), CFCard: 7,
	}))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Store(ctx, "Nahuelbuta", &protocol.WeatherSample{
			Timestamp:      baseTime.Add(time.Duration(i) * 10 * time.Minute),
			AirTemperature: float64(10 + i),
			AirPressure:    math.Inf(1),
		}))
	}

	_, ts := newTestServer(t, store)

	var latest map[string]any
	getJSON(t, ts.URL+"/api/stations/Nahuelbuta/latest", http.StatusOK, &latest)

	require.Equal(t, "Nahuelbuta", latest["station"])

	status := latest["logger_status"].(map[string]any)
	require.Equal(t, "2022-04-03T13:00:00", status["timestamp"])
	require.InDelta(t, 13.26, status["solar_battery"], 1e-9)
	require.Nil(t, status["wind_diag"])
	require.Contains(t, status, "wind_diag")
	require.EqualValues(t, 7, status["cf_card"])

	weather := latest["weather"].(map[string]any)
	require.Equal(t, "2022-04-03T13:20:00", weather["timestamp"])
	require.InDelta(t, 12.0, weather["air_temperature"], 1e-9)
	require.Nil(t, weather["air_pressure"])
}

func TestLatestNotFound(t *testing.T) {
	_, ts := newTestServer(t, openStore(t))
	getJSON(t, ts.URL+"/api/stations/La_Campana/latest", http.StatusNotFound, nil)
}

func TestWeatherRange(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		require.NoError(t, store.Store(ctx, "test1", &protocol.WeatherSample{
			Timestamp:      baseTime.Add(time.Duration(i) * time.Hour),
			AirTemperature: float64(i),
		}))
	}

	_, ts := newTestServer(t, store)

	var samples []map[string]any
	getJSON(t, ts.URL+"/api/stations/test1/weather?from=2022-04-03T14:00:00&to=2022-04-03T17:00:00", http.StatusOK, &samples)
	require.Len(t, samples, 3)
	require.Equal(t, "2022-04-03T14:00:00", samples[0]["timestamp"])
	require.Equal(t, "2022-04-03T16:00:00", samples[2]["timestamp"])

	getJSON(t, ts.URL+"/api/stations/test1/weather?from=yesterday", http.StatusBadRequest, nil)
	getJSON(t, ts.URL+"/api/stations/test1/weather?from=2022-04-03T17:00:00&to=2022-04-03T14:00:00", http.StatusBadRequest, nil)
}

func TestNoStore(t *testing.T) {
	_, ts := newTestServer(t, nil)

	getJSON(t, ts.URL+"/api/stations/test1/latest", http.StatusServiceUnavailable, nil)
	getJSON(t, ts.URL+"/api/stations/test1/weather", http.StatusServiceUnavailable, nil)

	var list []StationView
	getJSON(t, ts.URL+"/api/stations", http.StatusOK, &list)
	require.Len(t, list, 3)
}

func TestMetricsEndpoint(t *testing.T) {
	s, ts := newTestServer(t, nil)

	getJSON(t, ts.URL+"/api/stations", http.StatusOK, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "iridium_http_requests_total")
	require.Equal(t, 1.0, testutil.ToFloat64(s.metrics.HTTPRequests.WithLabelValues("/api/stations", "GET")))
}

func TestUnknownRoute(t *testing.T) {
	_, ts := newTestServer(t, nil)
	getJSON(t, ts.URL+"/api/nothing", http.StatusNotFound, nil)
}

func dialFeed(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/feed"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestFeed(t *testing.T) {
	s, ts := newTestServer(t, nil)
	conn := dialFeed(t, ts)

	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	status := &protocol.LoggerStatus{Timestamp: baseTime, SolarBattery: 12.5, LithiumBattery: math.NaN()}
	require.NoError(t, s.hub.Store(context.Background(), "Santa_Gracia", status))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))

	require.Equal(t, "Santa_Gracia", event.Station)
	require.Equal(t, "logger_status", event.Kind)
	require.False(t, event.Received.IsZero())
	require.Equal(t, "2022-04-03T13:00:00", event.Record["timestamp"])
	require.InDelta(t, 12.5, event.Record["solar_battery"], 1e-9)
	require.Nil(t, event.Record["lithium_battery"])
	require.Equal(t, 1.0, testutil.ToFloat64(s.metrics.FeedClients))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestFeedClosedByHub(t *testing.T) {
	s, ts := newTestServer(t, nil)
	conn := dialFeed(t, ts)
	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	s.hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
