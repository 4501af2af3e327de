package scale

import (
	"math"
	"sync/atomic"
)

// Calibration holds the state shared between the sampling goroutine and
// control callers. Each field is an independent atomic; there is no
// snapshot across fields, so a reader may pair a new zero offset with an old
// scale factor for one cycle.
type Calibration struct {
	zeroOffset    atomic.Int32
	scaleFactor   atomic.Uint32 // float32 bits
	latestAverage atomic.Int32
}

// NewCalibration creates calibration state with an initial scale factor.
func NewCalibration(scaleFactor float32) *Calibration {
	c := &Calibration{}
	c.SetScaleFactor(scaleFactor)
	return c
}

// ZeroOffset returns the raw reading that corresponds to zero weight.
func (c *Calibration) ZeroOffset() int32 {
	return c.zeroOffset.Load()
}

// SetZeroOffset replaces the zero offset.
func (c *Calibration) SetZeroOffset(v int32) {
	c.zeroOffset.Store(v)
}

// ScaleFactor returns raw counts per weight unit; 0 means uncalibrated.
func (c *Calibration) ScaleFactor() float32 {
	return math.Float32frombits(c.scaleFactor.Load())
}

// SetScaleFactor replaces the scale factor.
func (c *Calibration) SetScaleFactor(f float32) {
	c.scaleFactor.Store(math.Float32bits(f))
}

// LatestAverage returns the most recent smoothed reading.
func (c *Calibration) LatestAverage() int32 {
	return c.latestAverage.Load()
}

// SetLatestAverage records the most recent smoothed reading.
func (c *Calibration) SetLatestAverage(v int32) {
	c.latestAverage.Store(v)
}

// Tare uses the latest smoothed reading as the new zero offset. It takes
// effect on the next sampling cycle.
func (c *Calibration) Tare() int32 {
	avg := c.latestAverage.Load()
	c.zeroOffset.Store(avg)
	return avg
}

// Calibrate derives the scale factor from the latest smoothed reading with
// referenceWeight on the pan:
//
//	scaleFactor = (latestAverage - zeroOffset) / referenceWeight
//
// The scale factor is left unchanged when referenceWeight is zero.
func (c *Calibration) Calibrate(referenceWeight int32) (float32, error) {
	if referenceWeight == 0 {
		return 0, ErrInvalidReference
	}

	valid := c.latestAverage.Load() - c.zeroOffset.Load()
	factor := float32(valid) / float32(referenceWeight)
	c.SetScaleFactor(factor)

	return factor, nil
}
