package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewUsesPrivateRegistry(t *testing.T) {
	// Two instances must not collide on registration
	a := New()
	b := New()

	a.RecordsDecoded.WithLabelValues("Nahuelbuta", "weather").Add(3)

	require.Equal(t, 3.0, testutil.ToFloat64(a.RecordsDecoded.WithLabelValues("Nahuelbuta", "weather")))
	require.Equal(t, 0.0, testutil.ToFloat64(b.RecordsDecoded.WithLabelValues("Nahuelbuta", "weather")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.DecodeErrors.WithLabelValues("La_Campana", "data_length_mismatch").Inc()
	m.ListenersUp.Set(2)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	require.Contains(t, text, `iridium_decode_errors_total{error="data_length_mismatch",station="La_Campana"} 1`)
	require.Contains(t, text, "iridium_listeners_up 2")
	require.Contains(t, text, "go_goroutines")
}
