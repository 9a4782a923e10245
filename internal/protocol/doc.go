// Package protocol implements the binary telemetry format sent by the
// Campbell-style data loggers of the weather stations over the Iridium
// satellite link.
//
// This package handles decoding, validation and construction of telemetry
// messages. Decoding is pure: every function works on a byte slice and is
// safe for concurrent use.
//
// # Message Overview
//
// A wire message as delivered over TCP:
//   - Preamble: PreambleLength (48) bytes of transport header, ignored
//   - Marker byte: 0x02
//   - Payload length: 2 bytes (big-endian)
//   - Payload: logger status or weather samples
//
// # Payloads
//
// The payload type is chosen by its length alone:
//   - 14 bytes: logger status (solar battery, lithium battery, wind diagnostic)
//   - 18 bytes: logger status with the CF card counter
//   - n*28 bytes: n weather samples
//
// Each record starts with a little-endian seconds counter since 1990-01-01
// and a reserved little-endian word. Measurements are big-endian FP2 values.
//
// # Usage Example - Decoding
//
//	records, err := protocol.DecodeFrame(frame)
//	if err != nil {
//	    if errors.Is(err, protocol.ErrDataLengthMismatch) {
//	        // truncated or padded upload
//	    }
//	    return err
//	}
//	for _, rec := range records {
//	    switch r := rec.(type) {
//	    case *protocol.LoggerStatus:
//	        fmt.Println(r.SolarBattery)
//	    case *protocol.WeatherSample:
//	        fmt.Println(r.AirTemperature)
//	    }
//	}
//
// # Usage Example - Building
//
//	payload := sample.Marshal()
//	msg, err := protocol.BuildMessage(nil, payload)
package protocol
