package traffic

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
)

var start = time.Date(2022, 4, 3, 13, 0, 0, 0, time.UTC)

func TestGenerateStatus(t *testing.T) {
	for _, kind := range []string{KindStatus, KindStatusExt} {
		t.Run(kind, func(t *testing.T) {
			msg, err := Generate(kind, 0, start)
			require.NoError(t, err)

			records, err := protocol.DecodeMessage(msg)
			require.NoError(t, err)
			require.Len(t, records, 1)

			status := records[0].(*protocol.LoggerStatus)
			require.True(t, status.Timestamp.Equal(start))
			require.InDelta(t, 13.26, status.SolarBattery, 1e-9)
			if kind == KindStatusExt {
				require.Len(t, msg, protocol.PreambleLength+protocol.FrameHeaderLength+protocol.LoggerStatusExtLength)
			} else {
				require.Zero(t, status.CFCard)
			}
		})
	}
}

func TestGenerateWeatherRoundTrip(t *testing.T) {
	msg, err := Generate(KindWeather, 6, start)
	require.NoError(t, err)

	records, err := protocol.DecodeMessage(msg)
	require.NoError(t, err)
	require.Len(t, records, 6)

	for i, rec := range records {
		sample := rec.(*protocol.WeatherSample)
		want := Sample(start.Add(-time.Duration(5-i) * SampleInterval))
		require.Equal(t, want, sample, "sample %d", i)
	}
	require.True(t, records[5].Time().Equal(start))
}

func TestGenerateRejects(t *testing.T) {
	_, err := Generate("video", 1, start)
	require.Error(t, err)

	_, err = Generate(KindWeather, 0, start)
	require.Error(t, err)

	_, err = Generate(KindWeather, MaxSamples+1, start)
	require.Error(t, err)

	_, err = Generate(KindWeather, MaxSamples, start)
	require.NoError(t, err)
}

func TestSend(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	msg, err := Generate(KindStatus, 0, start)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, Send(ctx, l.Addr().String(), msg))

	select {
	case data := <-received:
		require.Equal(t, msg, data)
	case <-time.After(5 * time.Second):
		t.Fatal("nothing received")
	}
}
