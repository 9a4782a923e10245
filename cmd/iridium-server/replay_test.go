package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/willi-kappler/iridium-weatherstation/internal/archive"
	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
	"github.com/willi-kappler/iridium-weatherstation/internal/storage"
	"github.com/willi-kappler/iridium-weatherstation/internal/traffic"
)

var start = time.Date(2022, 4, 3, 13, 0, 0, 0, time.UTC)

func TestReplay(t *testing.T) {
	dir := t.TempDir()

	a, err := archive.Open(filepath.Join(dir, "archive.db"))
	require.NoError(t, err)
	defer a.Close()

	store, err := storage.Open(storage.Config{Path: filepath.Join(dir, "iridium.db")})
	require.NoError(t, err)
	defer store.Close()

	weather, err := traffic.Generate(traffic.KindWeather, 3, start)
	require.NoError(t, err)
	status, err := traffic.Generate(traffic.KindStatusExt, 0, start)
	require.NoError(t, err)

	require.NoError(t, a.Put("Nahuelbuta", start, weather))
	require.NoError(t, a.Put("Nahuelbuta", start, []byte{0x02, 0x00}))
	require.NoError(t, a.Put("Nahuelbuta", start, status))

	ctx := context.Background()
	res, err := replay(ctx, a, store, "Nahuelbuta")
	require.NoError(t, err)
	require.Equal(t, replayResult{Messages: 3, Records: 4, Failed: 1}, res)

	latest, err := store.LatestWeather(ctx, "Nahuelbuta")
	require.NoError(t, err)
	require.True(t, latest.Timestamp.Equal(start))

	// Replaying again replaces rows
	res, err = replay(ctx, a, store, "Nahuelbuta")
	require.NoError(t, err)
	require.Equal(t, 4, res.Records)

	samples, err := store.WeatherRange(ctx, "Nahuelbuta", start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, samples, 3)
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()

	msg, err := traffic.Generate(traffic.KindWeather, 2, start)
	require.NoError(t, err)

	withPreamble := filepath.Join(dir, "message.bin")
	require.NoError(t, os.WriteFile(withPreamble, msg, 0600))

	frameOnly := filepath.Join(dir, "frame.bin")
	require.NoError(t, os.WriteFile(frameOnly, msg[protocol.PreambleLength:], 0600))

	records, err := decodeFile(withPreamble, false)
	require.NoError(t, err)
	require.Len(t, records, 2)

	records, err = decodeFile(frameOnly, true)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// A frame read as a message loses its first 48 bytes
	_, err = decodeFile(frameOnly, false)
	require.Error(t, err)

	_, err = decodeFile(filepath.Join(dir, "missing.bin"), false)
	require.ErrorIs(t, err, os.ErrNotExist)
}
