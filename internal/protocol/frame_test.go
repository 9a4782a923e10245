package protocol

import (
	"errors"
	"io"
	"testing"
	"time"
)

var (
	weatherChunk = []byte{
		0, 141, 64, 50, 0, 0, 0, 0,
		69, 222, 35, 229, 92, 249, 96, 77, 70, 100,
		97, 103, 98, 238, 43, 190, 99, 232, 3, 194,
	}

	statusFrame = []byte{2, 0, 14, 128, 151, 171, 60, 0, 0, 0, 0, 68, 209, 109, 116, 96, 0}

	statusExtFrame = []byte{
		2, 0, 18, 0, 233, 172, 60, 0, 0, 0, 0,
		68, 223, 109, 41, 96, 0, 255, 255, 255, 127,
	}
)

func TestDataLength(t *testing.T) {
	tests := []struct {
		hi, lo byte
		want   int
	}{
		{0, 0, 0},
		{0, 27, 27},
		{1, 0, 256},
		{1, 4, 260},
		{255, 255, 65535},
	}

	for _, tt := range tests {
		buf := []byte{FrameMarker, tt.hi, tt.lo}
		if got := DataLength(buf); got != tt.want {
			t.Errorf("DataLength(%d, %d) = %d, want %d", tt.hi, tt.lo, got, tt.want)
		}
	}
}

func TestValidateFrame(t *testing.T) {
	tests := []struct {
		name       string
		buf        []byte
		wantKind   ErrorKind
		wantLength int
		wantData   int
	}{
		{
			name:       "single byte",
			buf:        []byte{0},
			wantKind:   DataTooShort,
			wantLength: 1,
		},
		{
			name:       "empty",
			buf:        nil,
			wantKind:   DataTooShort,
			wantLength: 0,
		},
		{
			name:       "one byte below minimum",
			buf:        make([]byte, MinFrameLength-1),
			wantKind:   DataTooShort,
			wantLength: MinFrameLength - 1,
		},
		{
			name:       "zeros declare zero length",
			buf:        make([]byte, 17),
			wantKind:   DataLengthMismatch,
			wantLength: 0,
		},
		{
			name:       "declared longer than buffer",
			buf:        append([]byte{2, 1, 4}, make([]byte, 14)...),
			wantKind:   DataLengthMismatch,
			wantLength: 260,
		},
		{
			name:     "bad marker",
			buf:      append([]byte{0, 0, 14}, make([]byte, 14)...),
			wantKind: InvalidDataHeader,
		},
		{
			name:       "length checked before marker",
			buf:        append([]byte{9, 0, 15}, make([]byte, 14)...),
			wantKind:   DataLengthMismatch,
			wantLength: 15,
		},
		{
			name:     "logger status",
			buf:      statusFrame,
			wantData: 14,
		},
		{
			name:     "weather sample",
			buf:      append([]byte{2, 0, 28}, weatherChunk...),
			wantData: 28,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := ValidateFrame(tt.buf)

			if tt.wantKind == 0 {
				if err != nil {
					t.Fatalf("ValidateFrame() error = %v", err)
				}
				if n != tt.wantData {
					t.Errorf("ValidateFrame() = %d, want %d", n, tt.wantData)
				}
				return
			}

			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("ValidateFrame() error = %v, want *DecodeError", err)
			}
			if de.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", de.Kind, tt.wantKind)
			}
			if de.Length != tt.wantLength {
				t.Errorf("Length = %d, want %d", de.Length, tt.wantLength)
			}
		})
	}
}

func TestValidateFrameAcceptsOnlyConsistentFrames(t *testing.T) {
	// Any buffer that validates has a marker and a matching declared length
	for size := MinFrameLength; size < MinFrameLength+64; size++ {
		buf := make([]byte, size)
		buf[0] = FrameMarker
		for declared := 0; declared < size+8; declared++ {
			buf[1] = byte(declared >> 8)
			buf[2] = byte(declared)

			n, err := ValidateFrame(buf)
			if (declared == size-FrameHeaderLength) != (err == nil) {
				t.Fatalf("size %d declared %d: err = %v", size, declared, err)
			}
			if err == nil && n != declared {
				t.Fatalf("size %d: ValidateFrame() = %d, want %d", size, n, declared)
			}
		}
	}
}

func TestDecodeFrame(t *testing.T) {
	t.Run("logger status", func(t *testing.T) {
		records, err := DecodeFrame(statusFrame)
		if err != nil {
			t.Fatalf("DecodeFrame() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("len(records) = %d, want 1", len(records))
		}
		status, ok := records[0].(*LoggerStatus)
		if !ok {
			t.Fatalf("record type = %T, want *LoggerStatus", records[0])
		}
		want := LoggerStatus{
			Timestamp:      time.Date(2022, 4, 4, 0, 0, 0, 0, time.UTC),
			SolarBattery:   12.33,
			LithiumBattery: 3.444,
			WindDiag:       0.0,
			CFCard:         0,
		}
		assertStatus(t, status, want)
	})

	t.Run("extended logger status", func(t *testing.T) {
		records, err := DecodeFrame(statusExtFrame)
		if err != nil {
			t.Fatalf("DecodeFrame() error = %v", err)
		}
		status := records[0].(*LoggerStatus)
		want := LoggerStatus{
			Timestamp:      time.Date(2022, 4, 5, 0, 0, 0, 0, time.UTC),
			SolarBattery:   12.47,
			LithiumBattery: 3.369,
			WindDiag:       0.0,
			CFCard:         4294967167,
		}
		assertStatus(t, status, want)
	})

	t.Run("weather", func(t *testing.T) {
		records, err := DecodeFrame(append([]byte{2, 0, 28}, weatherChunk...))
		if err != nil {
			t.Fatalf("DecodeFrame() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("len(records) = %d, want 1", len(records))
		}
		if records[0].Kind() != KindWeatherSample {
			t.Errorf("Kind() = %v, want %v", records[0].Kind(), KindWeatherSample)
		}
	})

	t.Run("validation error surfaces", func(t *testing.T) {
		_, err := DecodeFrame([]byte{0})
		if !errors.Is(err, ErrDataTooShort) {
			t.Errorf("DecodeFrame() error = %v, want ErrDataTooShort", err)
		}
	})

	t.Run("valid header with odd payload", func(t *testing.T) {
		buf := append([]byte{2, 0, 30}, make([]byte, 30)...)
		_, err := DecodeFrame(buf)
		if !errors.Is(err, ErrIO) {
			t.Errorf("DecodeFrame() error = %v, want ErrIO", err)
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("DecodeFrame() error = %v, want io.ErrUnexpectedEOF cause", err)
		}
	})
}

func TestDecodeErrorIs(t *testing.T) {
	err := error(&DecodeError{Kind: DataLengthMismatch, Length: 42})

	if !errors.Is(err, ErrDataLengthMismatch) {
		t.Error("errors.Is(DataLengthMismatch(42), ErrDataLengthMismatch) = false")
	}
	if errors.Is(err, ErrDataTooShort) {
		t.Error("errors.Is(DataLengthMismatch(42), ErrDataTooShort) = true")
	}
	if got := KindOf(err); got != DataLengthMismatch {
		t.Errorf("KindOf() = %v, want %v", got, DataLengthMismatch)
	}
	if got := KindOf(io.EOF); got != 0 {
		t.Errorf("KindOf(io.EOF) = %v, want 0", got)
	}
	if got := err.Error(); got != "data length does not match: declared 42 bytes" {
		t.Errorf("Error() = %q", got)
	}
}

func assertStatus(t *testing.T, got *LoggerStatus, want LoggerStatus) {
	t.Helper()
	if !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, want.Timestamp)
	}
	if got.SolarBattery != want.SolarBattery {
		t.Errorf("SolarBattery = %v, want %v", got.SolarBattery, want.SolarBattery)
	}
	if got.LithiumBattery != want.LithiumBattery {
		t.Errorf("LithiumBattery = %v, want %v", got.LithiumBattery, want.LithiumBattery)
	}
	if got.WindDiag != want.WindDiag {
		t.Errorf("WindDiag = %v, want %v", got.WindDiag, want.WindDiag)
	}
	if got.CFCard != want.CFCard {
		t.Errorf("CFCard = %d, want %d", got.CFCard, want.CFCard)
	}
}
