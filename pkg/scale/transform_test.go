package scale

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform(t *testing.T) {
	tests := []struct {
		name   string
		raw    int32
		zero   int32
		factor float32
		want   int32
	}{
		{name: "zero load", raw: 30000, zero: 30000, factor: 1000, want: 0},
		{name: "exact", raw: 130000, zero: 30000, factor: 1000, want: 100},
		{name: "rounds down", raw: 30400, zero: 30000, factor: 1000, want: 0},
		{name: "rounds half up", raw: 30500, zero: 30000, factor: 1000, want: 1},
		{name: "rounds half away from zero", raw: 29500, zero: 30000, factor: 1000, want: -1},
		{name: "negative weight", raw: 25000, zero: 30000, factor: 1000, want: -5},
		{name: "negative factor", raw: 130000, zero: 30000, factor: -1000, want: -100},
		{name: "fractional factor", raw: 42958 + 83886, zero: 83886, factor: 429.58, want: 100},
		{name: "saturates high", raw: 8388607, zero: 0, factor: 0.001, want: math.MaxInt32},
		{name: "saturates low", raw: -8388608, zero: 0, factor: 0.001, want: math.MinInt32},
		{name: "negative factor saturates", raw: 8388607, zero: 0, factor: -0.001, want: math.MinInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transform(tt.raw, tt.zero, tt.factor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransform_Deterministic(t *testing.T) {
	a, errA := Transform(123457, -991, 429.58)
	b, errB := Transform(123457, -991, 429.58)

	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}

func TestTransform_ZeroFactor(t *testing.T) {
	inputs := []struct{ raw, zero int32 }{
		{0, 0},
		{1000, 0},
		{-8388608, 8388607},
		{8388607, -8388608},
		{42, 42},
	}

	for _, in := range inputs {
		got, err := Transform(in.raw, in.zero, 0)
		assert.ErrorIs(t, err, ErrCalibration)
		assert.Equal(t, int32(0), got)
	}
}

func TestTransform_NonFiniteFactor(t *testing.T) {
	factors := []float32{
		float32(math.NaN()),
		float32(math.Inf(1)),
		float32(math.Inf(-1)),
	}

	for _, f := range factors {
		got, err := Transform(130000, 30000, f)
		assert.ErrorIs(t, err, ErrCalibration, "factor %v", f)
		assert.Equal(t, int32(0), got)
	}
}

func TestTransform_RoundTrip(t *testing.T) {
	factors := []float32{1, 7.25, 429.58, 1000, -250.5}
	zeros := []int32{0, 83886, -40000}

	for _, f := range factors {
		for _, z := range zeros {
			for w := int32(-1000); w <= 5000; w += 37 {
				raw := z + int32(math.Round(float64(w)*float64(f)))

				got, err := Transform(raw, z, f)
				require.NoError(t, err)
				assert.InDelta(t, w, got, 1, "w=%d f=%v z=%d", w, f, z)
			}
		}
	}
}
