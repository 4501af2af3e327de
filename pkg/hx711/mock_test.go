package hx711

import (
	"testing"

	"github.com/itohio/goscale/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMock(t *testing.T) {
	cfg := &config.MockConfig{
		Offset:        1000,
		CountsPerUnit: 10,
		Load:          5,
	}

	dev := NewMock(cfg)
	assert.NotNil(t, dev)
	assert.Equal(t, cfg, dev.cfg)
	assert.Equal(t, int32(5), dev.Load())
	assert.False(t, dev.IsConnected())
}

func TestNewMock_NilConfig(t *testing.T) {
	dev := NewMock(nil)
	assert.NotNil(t, dev)
	assert.NotNil(t, dev.cfg)
	assert.Equal(t, int32(83886), dev.cfg.Offset)
	assert.Equal(t, float32(429.58), dev.cfg.CountsPerUnit)
}

func TestMock_Read(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MockConfig
		load int32
		want int32
	}{
		{
			name: "empty pan",
			cfg:  config.MockConfig{Offset: 1000, CountsPerUnit: 10},
			want: 1000,
		},
		{
			name: "loaded pan",
			cfg:  config.MockConfig{Offset: 1000, CountsPerUnit: 10},
			load: 120,
			want: 2200,
		},
		{
			name: "negative load",
			cfg:  config.MockConfig{Offset: 1000, CountsPerUnit: 10},
			load: -5,
			want: 950,
		},
		{
			name: "fractional counts round",
			cfg:  config.MockConfig{Offset: 0, CountsPerUnit: 429.58},
			load: 100,
			want: 42958,
		},
		{
			name: "saturates at full scale",
			cfg:  config.MockConfig{Offset: MaxRaw - 10, CountsPerUnit: 100},
			load: 1,
			want: MaxRaw,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			dev := NewMock(&cfg)
			require.NoError(t, dev.Connect())
			dev.SetLoad(tt.load)

			v, err := dev.Read()
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestMock_Noise(t *testing.T) {
	cfg := &config.MockConfig{Offset: 5000, CountsPerUnit: 1, Noise: 20}
	dev := NewMock(cfg)
	require.NoError(t, dev.Connect())

	for i := 0; i < 200; i++ {
		v, err := dev.Read()
		require.NoError(t, err)
		assert.InDelta(t, 5000, v, 20)
	}
	assert.Equal(t, int64(200), dev.Reads())
}

func TestMock_Failure(t *testing.T) {
	cfg := &config.MockConfig{Offset: 5000, CountsPerUnit: 1, FailureRate: 1}
	dev := NewMock(cfg)
	require.NoError(t, dev.Connect())

	_, err := dev.Read()
	assert.ErrorIs(t, err, ErrReadFailed)
}

func TestMock_ConnectClose(t *testing.T) {
	dev := NewMock(nil)

	_, err := dev.Read()
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, dev.Connect())
	assert.True(t, dev.IsConnected())
	assert.Error(t, dev.Connect())

	require.NoError(t, dev.Close())
	assert.False(t, dev.IsConnected())

	_, err = dev.Read()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestMock_Gain(t *testing.T) {
	dev := NewMock(&config.MockConfig{Offset: 1000, CountsPerUnit: 10, Load: 100})
	require.NoError(t, dev.Connect())
	assert.Equal(t, GainA128, dev.Gain())

	tests := []struct {
		gain Gain
		want int32
	}{
		{gain: GainA128, want: 2000},
		{gain: GainA64, want: 1500},
		{gain: GainB32, want: 1250},
	}
	for _, tt := range tests {
		require.NoError(t, dev.SetGain(tt.gain))
		v, err := dev.Read()
		require.NoError(t, err)
		assert.Equal(t, tt.want, v, tt.gain.String())
	}

	assert.Error(t, dev.SetGain(Gain(0)))
	assert.Equal(t, GainB32, dev.Gain())
}
