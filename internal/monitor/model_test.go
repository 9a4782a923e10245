package monitor

import (
	"context"
	"errors"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/willi-kappler/iridium-weatherstation/internal/api"
	"github.com/willi-kappler/iridium-weatherstation/internal/metrics"
	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
)

var baseTime = time.Date(2022, 4, 3, 13, 0, 0, 0, time.UTC)

func event(station string, rec protocol.Record) eventMsg {
	return eventMsg(api.NewEvent(station, rec, baseTime))
}

func TestModelRows(t *testing.T) {
	m := NewModel("ws://test/api/feed", nil, nil)

	updates := []eventMsg{
		event("Santa_Gracia", &protocol.WeatherSample{Timestamp: baseTime, AirTemperature: 18.5, AirPressure: math.NaN()}),
		event("Nahuelbuta", &protocol.LoggerStatus{Timestamp: baseTime.Add(time.Minute), SolarBattery: 13.26, LithiumBattery: 3.58}),
		event("Nahuelbuta", &protocol.WeatherSample{Timestamp: baseTime, WindSpeed: 6.046}),
	}

	var model tea.Model = m
	for _, u := range updates {
		var cmd tea.Cmd
		model, cmd = model.Update(u)
		require.NotNil(t, cmd, "model must keep waiting for events")
	}

	rows := model.(Model).rows()
	require.Len(t, rows, 2)

	// Sorted by station name
	require.Equal(t, "Nahuelbuta", rows[0][0])
	require.Equal(t, "2022-04-03T13:01:00", rows[0][1])
	require.Equal(t, "13.26", rows[0][2])
	require.Equal(t, "3.58", rows[0][3])
	require.Equal(t, "6.046", rows[0][6])
	require.Equal(t, "2", rows[0][9])

	require.Equal(t, "Santa_Gracia", rows[1][0])
	require.Equal(t, "", rows[1][2], "no logger status received yet")
	require.Equal(t, "18.5", rows[1][4])
	require.Equal(t, "-", rows[1][8], "NaN arrives as null")
	require.Equal(t, "1", rows[1][9])

	view := model.View()
	require.Contains(t, view, "2 stations, 3 records")
}

func TestModelQuitAndFeedClosed(t *testing.T) {
	m := NewModel("ws://test/api/feed", nil, nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())

	model, _ := m.Update(feedClosedMsg{err: errors.New("connection reset")})
	require.Contains(t, model.View(), "connection reset")
}

func TestWaitForEventClosedChannel(t *testing.T) {
	events := make(chan api.Event)
	close(events)

	m := NewModel("ws://test/api/feed", events, func() error { return errors.New("gone") })
	msg := m.Init()()
	closed, ok := msg.(feedClosedMsg)
	require.True(t, ok)
	require.EqualError(t, closed.err, "gone")
}

func TestFeedReceivesEvents(t *testing.T) {
	hub := api.NewHub(metrics.New())
	srv := api.NewServer(api.Options{Hub: hub})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/feed"
	feed, err := Dial(context.Background(), url)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Store(context.Background(), "test2", &protocol.LoggerStatus{Timestamp: baseTime, SolarBattery: 12.1}))

	select {
	case e := <-feed.Events():
		require.Equal(t, "test2", e.Station)
		require.Equal(t, "logger_status", e.Kind)
		require.InDelta(t, 12.1, e.Record["solar_battery"], 1e-9)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
	require.NoError(t, feed.Err())

	hub.Close()
	select {
	case _, ok := <-feed.Events():
		require.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not end")
	}
	require.Error(t, feed.Err())
	feed.Close()
}

func TestDialFailure(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/api/feed")
	require.Error(t, err)
}
