package protocol

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a telemetry message could not be decoded
type ErrorKind int

const (
	// DataTooShort means the stream or payload is shorter than the smallest decodable size
	DataTooShort ErrorKind = iota + 1
	// DataLengthMismatch means the declared length field disagrees with the buffer size
	DataLengthMismatch
	// InvalidDataHeader means the marker byte is not FrameMarker
	InvalidDataHeader
	// IOError means a short read: a truncated chunk or a failing transport
	IOError
)

// String returns a stable, label-friendly name for the kind
func (k ErrorKind) String() string {
	switch k {
	case DataTooShort:
		return "data_too_short"
	case DataLengthMismatch:
		return "data_length_mismatch"
	case InvalidDataHeader:
		return "invalid_data_header"
	case IOError:
		return "io_error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// DecodeError is returned by every decoding function in this package.
//
// Length carries the observed length for DataTooShort and the declared
// length for DataLengthMismatch. Err carries the cause of an IOError.
type DecodeError struct {
	Kind   ErrorKind
	Length int
	Err    error
}

// Sentinels for errors.Is. They match any DecodeError of the same kind
// regardless of the carried length; use errors.As to inspect the length.
var (
	ErrDataTooShort       = &DecodeError{Kind: DataTooShort}
	ErrDataLengthMismatch = &DecodeError{Kind: DataLengthMismatch}
	ErrInvalidDataHeader  = &DecodeError{Kind: InvalidDataHeader}
	ErrIO                 = &DecodeError{Kind: IOError}
)

// Error implements the error interface
func (e *DecodeError) Error() string {
	switch e.Kind {
	case DataTooShort:
		return fmt.Sprintf("data too short: %d bytes", e.Length)
	case DataLengthMismatch:
		return fmt.Sprintf("data length does not match: declared %d bytes", e.Length)
	case InvalidDataHeader:
		return "invalid data header"
	case IOError:
		if e.Err != nil {
			return fmt.Sprintf("io error: %v", e.Err)
		}
		return "io error"
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the underlying cause (only set for IOError)
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DecodeError of the same kind
func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewDataTooShort returns a DataTooShort error for n observed bytes
func NewDataTooShort(n int) *DecodeError {
	return &DecodeError{Kind: DataTooShort, Length: n}
}

// NewIOError wraps a read failure or truncation cause
func NewIOError(cause error) *DecodeError {
	return &DecodeError{Kind: IOError, Err: cause}
}

// KindOf returns the ErrorKind of err, or 0 if err is not a DecodeError
func KindOf(err error) ErrorKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
