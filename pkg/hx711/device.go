package hx711

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the baud rate of the bridge firmware.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the number of parsed conversions kept between reads.
	DefaultBufferSize = 16
)

// RawSample is one conversion reported by the bridge MCU.
type RawSample struct {
	Timestamp time.Time
	Value     int32 // Sign-extended 24-bit reading
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial reads HX711 conversions from a bridge MCU over a serial port.
// The MCU clocks the chip and prints one line per conversion; Read returns
// the freshest line received since the previous call.
type Serial struct {
	port     string
	baudRate int
	bufSize  int
	log      *slog.Logger

	conn      serial.Port
	samples   chan RawSample
	mu        sync.RWMutex
	cancel    context.CancelFunc
	connected bool
}

// New creates a new Serial instance with the specified port and baud rate.
func New(port string, baudRate int, logger *slog.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  DefaultBufferSize,
		log:      logger.With("component", "hx711", "port", port),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading conversions.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.conn = port
	d.cancel = cancel
	d.samples = make(chan RawSample, d.bufSize)
	d.connected = true

	go d.readSamples(ctx, port, d.samples)

	return nil
}

// Close stops the reader and closes the port.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	var err error
	if d.conn != nil {
		if err = d.conn.Close(); err != nil {
			err = fmt.Errorf("failed to close serial port: %w", err)
		}
		d.conn = nil
	}

	d.connected = false

	return err
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Read returns the newest conversion received since the last call, or
// ErrNotReady when the bridge has not produced one yet.
func (d *Serial) Read() (int32, error) {
	d.mu.RLock()
	connected, samples := d.connected, d.samples
	d.mu.RUnlock()

	if !connected {
		return 0, ErrNotConnected
	}

	var (
		latest RawSample
		found  bool
	)
drain:
	for {
		select {
		case s := <-samples:
			latest, found = s, true
		default:
			break drain
		}
	}

	if !found {
		return 0, ErrNotReady
	}
	return latest.Value, nil
}

// SetGain asks the bridge to use g for subsequent conversions. The chip
// needs a few conversions to settle after a gain change.
func (d *Serial) SetGain(g Gain) error {
	if !g.Valid() {
		return fmt.Errorf("invalid gain %d", g)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	if _, err := fmt.Fprintf(d.conn, "g%d\n", g); err != nil {
		return fmt.Errorf("failed to send gain command: %w", err)
	}

	return nil
}

// readSamples reads lines from the serial port and parses them into RawSample.
func (d *Serial) readSamples(ctx context.Context, r io.Reader, out chan RawSample) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		sample, err := ParseLine(line)
		if err != nil {
			d.log.Debug("failed to parse line", "line", line, "err", err)
			continue
		}

		// Drop the oldest conversion when the buffer is full
		select {
		case out <- sample:
		default:
			select {
			case <-out:
			default:
			}
			select {
			case out <- sample:
			default:
			}
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		d.log.Warn("error reading from serial port", "err", err)
	}
}

// ParseLine parses a line from the bridge into a RawSample.
// Format: unix_micros,raw where raw is either a signed decimal or the
// 24-bit two's-complement word in hex.
// Example: 1234567890123,-41235 or 1234567890123,0xFF5EED
func ParseLine(line string) (RawSample, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return RawSample{}, fmt.Errorf("invalid line format: expected 2 comma-separated values, got %d", len(parts))
	}

	timestampMicros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return RawSample{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	value, err := parseReading(parts[1])
	if err != nil {
		return RawSample{}, err
	}

	return RawSample{
		Timestamp: time.UnixMicro(timestampMicros),
		Value:     value,
	}, nil
}

func parseReading(s string) (int32, error) {
	if hex, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		word, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid reading: %w", err)
		}
		if word > 0xFFFFFF {
			return 0, fmt.Errorf("reading out of range: %s (24-bit)", s)
		}
		return SignExtend24(uint32(word)), nil
	}

	raw, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid reading: %w", err)
	}
	if raw < MinRaw || raw > MaxRaw {
		return 0, fmt.Errorf("reading out of range: %d (24-bit)", raw)
	}
	return int32(raw), nil
}
