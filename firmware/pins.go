//go:build tinygo

package main

import "machine"

const (
	// HX711 pins
	PIN_HX711_SCK  = machine.D2 // PD_SCK, driven by the MCU
	PIN_HX711_DOUT = machine.D3 // DOUT, low when a conversion is ready

	// Gain selects channel and gain of the next conversion by the number of
	// extra clock pulses after the 24 data bits: 1 = A/128, 2 = B/32, 3 = A/64.
	DEFAULT_GAIN = 1

	// Conversions to discard after a gain change before the output settles
	IGNORE_SAMPLES_AFTER_GAIN = 4

	// Poll period of DOUT. The chip converts at 10 SPS (RATE pin low)
	POLL_INTERVAL_MS = 5

	// Holding PD_SCK high longer than 60us powers the chip down
	POWER_DOWN_US = 60

	// Serial configuration
	// Format "unix_micros,0xXXXXXX\n", e.g. "1234567890123456,0x800000\n" = ~26 bytes.
	// 10 lines/sec * 26 bytes = 260 bytes/sec, far below 115200 baud.
	UART_BAUD_RATE = 115200
)
