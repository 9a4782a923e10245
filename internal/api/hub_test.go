package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/willi-kappler/iridium-weatherstation/internal/metrics"
	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
)

func TestHubWithoutClients(t *testing.T) {
	hub := NewHub(metrics.New())
	require.NoError(t, hub.Store(context.Background(), "test1", &protocol.LoggerStatus{Timestamp: baseTime}))
	require.Zero(t, hub.Clients())
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(metrics.New())
	a := hub.subscribe("a")
	b := hub.subscribe("b")
	require.Equal(t, 2, hub.Clients())

	sample := &protocol.WeatherSample{Timestamp: baseTime, WindSpeed: 6.046}
	require.NoError(t, hub.Store(context.Background(), "La_Campana", sample))

	for _, c := range []*client{a, b} {
		data := <-c.send
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		require.Equal(t, "La_Campana", event.Station)
		require.Equal(t, "weather", event.Kind)
		require.InDelta(t, 6.046, event.Record["wind_speed"], 1e-9)
		require.Len(t, event.Record, protocol.WeatherFieldCount+1)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	m := metrics.New()
	hub := NewHub(m)
	slow := hub.subscribe("slow")
	fast := hub.subscribe("fast")

	for i := 0; i < clientBuffer+1; i++ {
		rec := &protocol.LoggerStatus{Timestamp: baseTime.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, hub.Store(context.Background(), "test2", rec))
		<-fast.send
	}

	require.Equal(t, 1, hub.Clients())
	require.Equal(t, 1.0, testutil.ToFloat64(m.FeedsDropped))

	// The slow client's channel is closed after its buffered events
	n := 0
	for range slow.send {
		n++
	}
	require.Equal(t, clientBuffer, n)

	hub.Close()
	_, open := <-fast.send
	require.False(t, open)
	require.Zero(t, hub.Clients())
	require.Equal(t, 0.0, testutil.ToFloat64(m.FeedClients))
}

func TestHubUnsubscribeTwice(t *testing.T) {
	hub := NewHub(metrics.New())
	c := hub.subscribe("twice")
	hub.unsubscribe(c)
	hub.unsubscribe(c)
	require.Zero(t, hub.Clients())
}
