package hx711

import "errors"

var (
	// ErrNotReady is returned when no fresh conversion is available yet.
	ErrNotReady = errors.New("hx711: conversion not ready")
	// ErrNotConnected is returned by reads on a closed device.
	ErrNotConnected = errors.New("hx711: not connected")
	// ErrReadFailed is returned by the mock when a failure is injected.
	ErrReadFailed = errors.New("hx711: read failed")
)

// Source supplies one signed raw ADC reading per call. Callers must respect
// the chip's minimum spacing between calls (100ms at 10 SPS).
type Source interface {
	Read() (int32, error)
}

// Device defines the interface for HX711 devices (real or mocked).
type Device interface {
	Source
	Connect() error
	Close() error
	IsConnected() bool
}

// GainSetter is implemented by devices that can switch channel and gain.
type GainSetter interface {
	SetGain(g Gain) error
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)

var (
	_ GainSetter = (*Serial)(nil)
	_ GainSetter = (*Mock)(nil)
)

// Gain selects the input channel and gain of the next conversion. The value
// is the number of extra clock pulses sent after the 24 data bits.
type Gain uint8

const (
	GainA128 Gain = 1 // Channel A, gain 128
	GainB32  Gain = 2 // Channel B, gain 32
	GainA64  Gain = 3 // Channel A, gain 64
)

// Valid reports whether g is one of the defined gains.
func (g Gain) Valid() bool {
	return g >= GainA128 && g <= GainA64
}

// Amplification returns the amplifier gain selected by g, or 0 if invalid.
func (g Gain) Amplification() int {
	switch g {
	case GainA128:
		return 128
	case GainB32:
		return 32
	case GainA64:
		return 64
	default:
		return 0
	}
}

func (g Gain) String() string {
	switch g {
	case GainA128:
		return "A128"
	case GainB32:
		return "B32"
	case GainA64:
		return "A64"
	default:
		return "invalid"
	}
}

const (
	// MinRaw and MaxRaw bound a 24-bit two's-complement conversion.
	MinRaw = -1 << 23
	MaxRaw = 1<<23 - 1
)

// SignExtend24 interprets the low 24 bits of v as a two's-complement value.
func SignExtend24(v uint32) int32 {
	v &= 0x00FFFFFF
	if v&0x00800000 != 0 {
		v |= 0xFF000000
	}
	return int32(v)
}
