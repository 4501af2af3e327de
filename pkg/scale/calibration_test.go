package scale

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCalibration(t *testing.T) {
	c := NewCalibration(429.58)

	assert.Equal(t, float32(429.58), c.ScaleFactor())
	assert.Equal(t, int32(0), c.ZeroOffset())
	assert.Equal(t, int32(0), c.LatestAverage())
}

func TestCalibration_Tare(t *testing.T) {
	c := NewCalibration(1000)
	c.SetLatestAverage(83886)

	assert.Equal(t, int32(83886), c.Tare())
	assert.Equal(t, int32(83886), c.ZeroOffset())
}

func TestCalibration_TareIdempotent(t *testing.T) {
	c := NewCalibration(1000)
	c.SetZeroOffset(100)
	c.SetLatestAverage(5000)

	c.Tare()
	first := c.ZeroOffset()
	c.Tare()
	second := c.ZeroOffset()

	assert.Equal(t, first, second)
	assert.Equal(t, int32(5000), second)
}

func TestCalibration_Calibrate(t *testing.T) {
	c := NewCalibration(1)
	c.SetLatestAverage(130000)
	c.SetZeroOffset(30000)

	factor, err := c.Calibrate(100)
	require.NoError(t, err)
	assert.Equal(t, float32(1000), factor)
	assert.Equal(t, float32(1000), c.ScaleFactor())

	// Zero and latest average are untouched
	assert.Equal(t, int32(30000), c.ZeroOffset())
	assert.Equal(t, int32(130000), c.LatestAverage())
}

func TestCalibration_CalibrateNegativeReference(t *testing.T) {
	c := NewCalibration(1)
	c.SetLatestAverage(130000)
	c.SetZeroOffset(30000)

	factor, err := c.Calibrate(-100)
	require.NoError(t, err)
	assert.Equal(t, float32(-1000), factor)
}

func TestCalibration_CalibrateZeroReference(t *testing.T) {
	c := NewCalibration(429.58)
	c.SetLatestAverage(130000)
	c.SetZeroOffset(30000)

	for i := 0; i < 3; i++ {
		factor, err := c.Calibrate(0)
		assert.ErrorIs(t, err, ErrInvalidReference)
		assert.Equal(t, float32(0), factor)
		assert.Equal(t, float32(429.58), c.ScaleFactor())
	}
}

func TestCalibration_Concurrent(t *testing.T) {
	c := NewCalibration(1000)
	c.SetZeroOffset(30000)
	c.SetLatestAverage(130000)

	var wg sync.WaitGroup

	// Writer standing in for the sampling goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int32(0); i < 1000; i++ {
			c.SetLatestAverage(130000 + i%2)
			_ = c.ZeroOffset()
			_ = c.ScaleFactor()
		}
	}()

	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				if g%2 == 0 {
					c.Tare()
					continue
				}
				factor, err := c.Calibrate(100)
				assert.NoError(t, err)
				assert.False(t, math.IsNaN(float64(factor)), "NaN scale factor")
			}
		}(g)
	}

	wg.Wait()

	// Zero offset always holds some latest average
	zero := c.ZeroOffset()
	assert.True(t, zero == 130000 || zero == 130001, "zero=%d", zero)
}
