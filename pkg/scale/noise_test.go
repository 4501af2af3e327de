package scale

import (
	"context"
	"testing"
	"time"

	"github.com/itohio/goscale/pkg/config"
	"github.com/itohio/goscale/pkg/hx711"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasureNoise(t *testing.T) {
	src := &scripted{}
	src.push(100, 102, 98)
	src.fail(hx711.ErrNotReady)
	src.push(100)

	n, err := MeasureNoise(context.Background(), src, 5, 0)
	require.NoError(t, err)

	assert.Equal(t, 4, n.Samples)
	assert.Equal(t, 1, n.Failures)
	assert.InDelta(t, 100, n.Mean, 1e-9)
	assert.InDelta(t, 1.632993, n.StdDev, 1e-6) // sample std-dev of 100,102,98,100
	assert.Equal(t, float64(98), n.Min)
	assert.Equal(t, float64(102), n.Max)
	assert.Equal(t, float64(4), n.PeakToPeak())
	assert.InDelta(t, 1.632993/2, n.Weight(2), 1e-6)
	assert.Equal(t, float64(0), n.Weight(0))
}

func TestMeasureNoise_SingleReading(t *testing.T) {
	src := &scripted{fallback: 7}

	n, err := MeasureNoise(context.Background(), src, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n.Samples)
	assert.Equal(t, float64(0), n.StdDev)
}

func TestMeasureNoise_NoSamples(t *testing.T) {
	src := &scripted{}
	for i := 0; i < 3; i++ {
		src.fail(hx711.ErrNotReady)
	}

	n, err := MeasureNoise(context.Background(), src, 3, 0)
	assert.ErrorIs(t, err, ErrNoSamples)
	assert.Equal(t, 3, n.Failures)
}

func TestMeasureNoise_InvalidAttempts(t *testing.T) {
	_, err := MeasureNoise(context.Background(), &scripted{}, 0, 0)
	assert.Error(t, err)
}

func TestMeasureNoise_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := MeasureNoise(ctx, &scripted{}, 3, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeasureNoise_Mock(t *testing.T) {
	dev := hx711.NewMock(&config.MockConfig{Offset: 10000, CountsPerUnit: 1, Noise: 30})
	require.NoError(t, dev.Connect())

	n, err := MeasureNoise(context.Background(), dev, 100, 0)
	require.NoError(t, err)

	assert.Equal(t, 100, n.Samples)
	assert.InDelta(t, 10000, n.Mean, 30)
	assert.LessOrEqual(t, n.PeakToPeak(), float64(60))
}
