package protocol

import "math"

// FP2 is the logger's two byte floating point format, most significant bit first:
//
//	bit 15      sign (0 = positive, 1 = negative)
//	bits 14-13  decimal position: 00 XXXX, 01 XXX.X, 10 XX.XX, 11 X.XXX
//	bits 12-0   13-bit magnitude
//
// The vendor caps the magnitude at 7999; three bit patterns with an all-ones
// magnitude are reserved for infinities and NaN.
const (
	FP2PosInfinity uint16 = 0x1FFF // 00011111 11111111
	FP2NegInfinity uint16 = 0x9FFF // 10011111 11111111
	FP2NaN         uint16 = 0x9FFE // 10011111 11111110

	fp2SignMask      = 0x8000
	fp2ScaleMask     = 0x6000
	fp2ScaleShift    = 13
	fp2MagnitudeMask = 0x1FFF

	// FP2MaxMagnitude is the largest magnitude the vendor allows
	FP2MaxMagnitude = 7999
)

var fp2Divisors = [4]float64{1, 10, 100, 1000}

// DecodeFP2 converts a raw FP2 value to float64. Every input maps to a
// finite value, +Inf, -Inf or NaN.
func DecodeFP2(raw uint16) float64 {
	switch raw {
	case FP2PosInfinity:
		return math.Inf(1)
	case FP2NegInfinity:
		return math.Inf(-1)
	case FP2NaN:
		return math.NaN()
	}

	sign := 1.0
	if raw&fp2SignMask != 0 {
		sign = -1.0
	}

	mantissa := float64(raw&fp2MagnitudeMask) * sign
	scale := (raw & fp2ScaleMask) >> fp2ScaleShift

	return mantissa / fp2Divisors[scale]
}

// EncodeFP2 converts v to FP2 using the finest decimal position that keeps
// the magnitude within FP2MaxMagnitude. Values beyond ±7999 saturate.
func EncodeFP2(v float64) uint16 {
	switch {
	case math.IsNaN(v):
		return FP2NaN
	case math.IsInf(v, 1):
		return FP2PosInfinity
	case math.IsInf(v, -1):
		return FP2NegInfinity
	}

	var sign uint16
	if v < 0 {
		sign = fp2SignMask
		v = -v
	}

	for scale := len(fp2Divisors) - 1; scale >= 0; scale-- {
		magnitude := math.Round(v * fp2Divisors[scale])
		if magnitude <= FP2MaxMagnitude {
			return sign | uint16(scale)<<fp2ScaleShift | uint16(magnitude)
		}
	}

	return sign | FP2MaxMagnitude
}
