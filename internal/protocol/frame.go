package protocol

// Frame layout after the transport preamble has been stripped:
//
//	[0]     0x02           Marker byte (FrameMarker)
//	[1]     length high    Declared payload length, big-endian
//	[2]     length low
//	[3+]    payload        Logger status or weather samples
const (
	// FrameMarker is the only accepted value of the first frame byte
	FrameMarker = 0x02

	// FrameHeaderLength is marker plus the two length bytes
	FrameHeaderLength = 3

	// MinFrameLength is the smallest frame the validator accepts: a header
	// followed by a short logger status
	MinFrameLength = FrameHeaderLength + LoggerStatusLength

	// MaxPayloadLength is the largest length the two length bytes can declare
	MaxPayloadLength = 0xFFFF
)

// DataLength reads the declared payload length from bytes 1 and 2.
// buf must hold at least FrameHeaderLength bytes.
func DataLength(buf []byte) int {
	return int(buf[2]) + 256*int(buf[1])
}

// ValidateFrame checks the frame header and returns the declared payload
// length. Checks run in a fixed order: size, declared length, marker.
func ValidateFrame(buf []byte) (int, error) {
	if len(buf) < MinFrameLength {
		return 0, NewDataTooShort(len(buf))
	}

	declared := DataLength(buf)
	if declared != len(buf)-FrameHeaderLength {
		return 0, &DecodeError{Kind: DataLengthMismatch, Length: declared}
	}

	if buf[0] != FrameMarker {
		return 0, &DecodeError{Kind: InvalidDataHeader}
	}

	return declared, nil
}

// DecodeFrame validates buf and decodes its payload
func DecodeFrame(buf []byte) ([]Record, error) {
	if _, err := ValidateFrame(buf); err != nil {
		return nil, err
	}
	return DecodePayload(buf[FrameHeaderLength:])
}
