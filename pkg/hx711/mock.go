package hx711

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/itohio/goscale/pkg/config"
)

// Mock simulates a load cell behind an HX711 for testing and development.
type Mock struct {
	cfg *config.MockConfig

	mu        sync.RWMutex
	connected bool

	// Simulation state
	load  atomic.Int32 // Weight units currently on the pan
	gain  atomic.Uint32
	reads atomic.Int64
	rnd   *rand.Rand
	rndMu sync.Mutex
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}

	m := &Mock{
		cfg: cfg,
		rnd: rand.New(rand.NewPCG(uint64(cfg.Offset), 0x5ca1e)),
	}
	m.load.Store(cfg.Load)
	m.gain.Store(uint32(GainA128))

	return m
}

// Connect simulates connecting to the device.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	return nil
}

// Close stops the mocked device.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false
	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// SetLoad places load weight units on the simulated pan.
func (m *Mock) SetLoad(load int32) {
	m.load.Store(load)
}

// Load returns the weight currently on the simulated pan.
func (m *Mock) Load() int32 {
	return m.load.Load()
}

// Reads returns the number of Read calls made so far.
func (m *Mock) Reads() int64 {
	return m.reads.Load()
}

// SetGain selects the simulated channel and gain. Counts per unit are
// configured for channel A at gain 128 and scale with the amplification.
func (m *Mock) SetGain(g Gain) error {
	if !g.Valid() {
		return fmt.Errorf("invalid gain %d", g)
	}
	m.gain.Store(uint32(g))
	return nil
}

// Gain returns the selected gain.
func (m *Mock) Gain() Gain {
	return Gain(m.gain.Load())
}

// Read generates a single simulated conversion.
func (m *Mock) Read() (int32, error) {
	m.reads.Add(1)

	if !m.IsConnected() {
		return 0, ErrNotConnected
	}

	m.rndMu.Lock()
	fail := m.cfg.FailureRate > 0 && m.rnd.Float64() < m.cfg.FailureRate
	var noise int32
	if m.cfg.Noise > 0 {
		noise = m.rnd.Int32N(2*m.cfg.Noise+1) - m.cfg.Noise
	}
	m.rndMu.Unlock()

	if fail {
		return 0, ErrReadFailed
	}

	amp := float32(m.Gain().Amplification()) / 128
	counts := math32.Round(float32(m.load.Load()) * m.cfg.CountsPerUnit * amp)
	raw := int64(m.cfg.Offset) + int64(counts) + int64(noise)

	// Saturate like the chip does at full scale
	if raw > MaxRaw {
		raw = MaxRaw
	} else if raw < MinRaw {
		raw = MinRaw
	}

	return int32(raw), nil
}
