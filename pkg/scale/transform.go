package scale

import (
	"errors"
	"math"

	"github.com/chewxy/math32"
)

var (
	// ErrCalibration is returned when the scale factor is zero (or not a
	// finite number) and raw readings cannot be converted to weight.
	ErrCalibration = errors.New("scale factor unset, cannot convert")
	// ErrInvalidReference is returned by Calibrate for a zero reference weight.
	ErrInvalidReference = errors.New("reference weight must not be zero")
)

// Transform converts a raw (or smoothed) ADC reading to weight:
//
//	weight = round((raw - zeroOffset) / scaleFactor)
//
// Rounding is half away from zero and saturates at the int32 limits. The
// result is deterministic for identical inputs.
func Transform(raw, zeroOffset int32, scaleFactor float32) (int32, error) {
	if scaleFactor == 0 || math32.IsNaN(scaleFactor) || math32.IsInf(scaleFactor, 0) {
		return 0, ErrCalibration
	}

	valid := raw - zeroOffset
	weight := math32.Round(float32(valid) / scaleFactor)
	switch {
	case weight >= math.MaxInt32:
		return math.MaxInt32, nil
	case weight <= math.MinInt32:
		return math.MinInt32, nil
	}
	return int32(weight), nil
}
