//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	uart = machine.UART0

	gain            = DEFAULT_GAIN
	ignoreCountdown = IGNORE_SAMPLES_AFTER_GAIN

	// Serial buffer for reading command lines
	serialBuffer [8]byte
	serialPos    int
)

func main() {
	PIN_HX711_SCK.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_HX711_DOUT.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	resetHX711()

	for {
		processSerial()

		if isReady() {
			word := readHX711()
			if ignoreCountdown > 0 {
				ignoreCountdown--
			} else {
				outputSample(word)
			}
		}

		time.Sleep(POLL_INTERVAL_MS * time.Millisecond)
	}
}

// isReady reports whether DOUT is low, i.e. a conversion can be clocked out.
func isReady() bool {
	return !PIN_HX711_DOUT.Get()
}

func clockPulse() {
	PIN_HX711_SCK.High()
	time.Sleep(time.Microsecond)
	PIN_HX711_SCK.Low()
	time.Sleep(time.Microsecond)
}

// readHX711 clocks out the 24-bit two's-complement word MSB first, then
// sends the gain pulses that select the next conversion. The host does the
// sign extension.
func readHX711() uint32 {
	var raw uint32
	for range 24 {
		PIN_HX711_SCK.High()
		time.Sleep(time.Microsecond)
		raw <<= 1
		if PIN_HX711_DOUT.Get() {
			raw |= 1
		}
		PIN_HX711_SCK.Low()
		time.Sleep(time.Microsecond)
	}

	for range gain {
		clockPulse()
	}

	return raw & 0x00FFFFFF
}

// resetHX711 power cycles the chip, which also restores channel A gain 128.
func resetHX711() {
	PIN_HX711_SCK.High()
	time.Sleep(POWER_DOWN_US * time.Microsecond)
	PIN_HX711_SCK.Low()
	time.Sleep(time.Millisecond)
}

const hexDigits = "0123456789ABCDEF"

func outputSample(word uint32) {
	// Output format: "unix_micros,0xXXXXXX\n"
	// Example: "1234567890123,0xFFFC00\n"
	var buf [8]byte
	buf[0], buf[1] = '0', 'x'
	for i := 0; i < 6; i++ {
		buf[7-i] = hexDigits[word&0xF]
		word >>= 4
	}

	print(time.Now().UnixNano() / 1000)
	print(",")
	print(string(buf[:]))
	print("\n")
}

// processSerial accepts "g<n>\n" with n in 1..3 to change channel and gain.
func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if serialPos == 2 && serialBuffer[0] == 'g' {
				updateGain(int(serialBuffer[1] - '0'))
			}
			serialPos = 0
			continue
		}

		if data == ' ' || data == '\t' {
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		}
	}
}

func updateGain(n int) {
	if n < 1 || n > 3 || n == gain {
		return
	}

	// The new gain applies from the conversion after the next read
	gain = n
	ignoreCountdown = IGNORE_SAMPLES_AFTER_GAIN
}
