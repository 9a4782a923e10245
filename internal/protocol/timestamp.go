package protocol

import (
	"math"
	"time"
)

// Epoch is the logger's reference instant. Timestamps are naive wall-clock
// values; UTC is only used as a carrier and no conversion happens anywhere.
var Epoch = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

// DecodeTimestamp returns Epoch plus seconds
func DecodeTimestamp(seconds uint32) time.Time {
	return Epoch.Add(time.Duration(int64(seconds)) * time.Second)
}

// EncodeTimestamp is the inverse of DecodeTimestamp. Instants outside the
// representable range are clamped to it.
func EncodeTimestamp(t time.Time) uint32 {
	seconds := t.Unix() - Epoch.Unix()
	if seconds < 0 {
		return 0
	}
	if seconds > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(seconds)
}
