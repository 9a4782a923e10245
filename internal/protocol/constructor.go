package protocol

import (
	"encoding/binary"
	"fmt"
)

// Message constructors. The ingest server never sends anything back to a
// logger; these exist for the traffic generator and for tests.

// PreambleLength is the size of the transport preamble that precedes every frame
const PreambleLength = 48

// Marshal encodes the status as a 14 byte payload, or 18 bytes with
// the CF card counter when extended is set. The reserved word is zero.
func (s *LoggerStatus) Marshal(extended bool) []byte {
	size := LoggerStatusLength
	if extended {
		size = LoggerStatusExtLength
	}

	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], EncodeTimestamp(s.Timestamp))
	binary.BigEndian.PutUint16(buf[8:10], EncodeFP2(s.SolarBattery))
	binary.BigEndian.PutUint16(buf[10:12], EncodeFP2(s.LithiumBattery))
	binary.BigEndian.PutUint16(buf[12:14], EncodeFP2(s.WindDiag))
	if extended {
		binary.BigEndian.PutUint32(buf[14:18], s.CFCard)
	}

	return buf
}

// Marshal encodes the sample as one 28 byte weather chunk
func (w *WeatherSample) Marshal() []byte {
	buf := make([]byte, WeatherSampleLength)
	binary.LittleEndian.PutUint32(buf[0:4], EncodeTimestamp(w.Timestamp))

	for i, v := range w.Fields() {
		offset := 2*ulongLength + i*fp2Length
		binary.BigEndian.PutUint16(buf[offset:offset+fp2Length], EncodeFP2(v))
	}

	return buf
}

// MarshalWeatherSamples concatenates the chunks of several samples into one payload
func MarshalWeatherSamples(samples []*WeatherSample) []byte {
	buf := make([]byte, 0, len(samples)*WeatherSampleLength)
	for _, s := range samples {
		buf = append(buf, s.Marshal()...)
	}
	return buf
}

// BuildFrame prepends the marker and big-endian length to a payload
func BuildFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), MaxPayloadLength)
	}

	frame := make([]byte, FrameHeaderLength+len(payload))
	frame[0] = FrameMarker
	binary.BigEndian.PutUint16(frame[1:3], uint16(len(payload)))
	copy(frame[FrameHeaderLength:], payload)

	return frame, nil
}

// BuildMessage builds a complete wire message: preamble, frame header and
// payload. A nil preamble is zero-filled; otherwise it must be exactly
// PreambleLength bytes.
func BuildMessage(preamble, payload []byte) ([]byte, error) {
	if preamble == nil {
		preamble = make([]byte, PreambleLength)
	}
	if len(preamble) != PreambleLength {
		return nil, fmt.Errorf("preamble must be %d bytes, got %d", PreambleLength, len(preamble))
	}

	frame, err := BuildFrame(payload)
	if err != nil {
		return nil, err
	}

	msg := make([]byte, 0, PreambleLength+len(frame))
	msg = append(msg, preamble...)
	msg = append(msg, frame...)

	return msg, nil
}

// SplitMessage strips the preamble from a raw wire message and returns the frame
func SplitMessage(raw []byte) ([]byte, error) {
	if len(raw) < PreambleLength {
		return nil, NewDataTooShort(len(raw))
	}
	return raw[PreambleLength:], nil
}

// DecodeMessage decodes a raw wire message including its preamble
func DecodeMessage(raw []byte) ([]Record, error) {
	frame, err := SplitMessage(raw)
	if err != nil {
		return nil, err
	}
	return DecodeFrame(frame)
}
