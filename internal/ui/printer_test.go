package ui

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{13.26, "13.26"},
		{-0.5, "-0.5"},
		{7999, "7999"},
		{0, "0"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "+Inf"},
		{math.Inf(-1), "-Inf"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrinterRecordPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	if p.Width() != MaxContentWidth {
		t.Errorf("Width() = %d, want %d for non-terminal output", p.Width(), MaxContentWidth)
	}

	p.Record("Nahuelbuta", &protocol.LoggerStatus{
		Timestamp:      time.Date(2022, 4, 3, 13, 5, 0, 0, time.UTC),
		SolarBattery:   13.26,
		LithiumBattery: math.NaN(),
		CFCard:         42,
	})

	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Errorf("plain output contains escape sequences: %q", out)
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), out)
	}
	if lines[0] != "Nahuelbuta  logger_status  2022-04-03 13:05:00" {
		t.Errorf("title = %q", lines[0])
	}

	for _, want := range []string{"solar_battery", "13.26", "lithium_battery", "NaN", "cf_card", "42"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrinterWeatherFields(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	sample := &protocol.WeatherSample{AirTemperature: 12.5, WindDirection: math.Inf(1)}
	p.Record("test1", sample)

	out := buf.String()
	for _, name := range protocol.WeatherFieldNames {
		if !strings.Contains(out, name) {
			t.Errorf("output missing field %q", name)
		}
	}
	if !strings.Contains(out, "+Inf") {
		t.Errorf("output missing +Inf:\n%s", out)
	}
}

func TestPrinterHeaderAndResults(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Header("decode", Param{Key: "File", Value: "msg.bin"})
	p.Success("Sent", Param{Key: "Records", Value: "3"})
	p.Failure("bad.bin", errors.New("invalid data header"))

	out := buf.String()
	for _, want := range []string{"DECODE", "File:", "msg.bin", SuccessMarker + " Sent", "Records:", FailureMarker + " bad.bin", "invalid data header"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// No box when not writing to a terminal
	if strings.Contains(out, "╭") {
		t.Errorf("plain output should not draw borders:\n%s", out)
	}
}
