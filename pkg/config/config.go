package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial     SerialConfig     `yaml:"serial"`
	Scale      ScaleConfig      `yaml:"scale"`
	Mock       MockConfig       `yaml:"mock"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// SerialConfig contains serial port configuration of the HX711 bridge.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	Gain     uint8  `yaml:"gain"` // HX711 gain pulses: 1 = A/128, 2 = B/32, 3 = A/64
}

// ScaleConfig contains the weighing pipeline parameters.
type ScaleConfig struct {
	SmoothingCapacity int           `yaml:"smoothing_capacity"` // Raw samples averaged per cycle
	StabilityCapacity int           `yaml:"stability_capacity"` // Smoothed averages that must agree for Stable
	WarmupReads       int           `yaml:"warmup_reads"`       // Reads taken before the worker starts
	ReadInterval      time.Duration `yaml:"read_interval"`      // Minimum spacing between HX711 reads
	MaxWeight         int32         `yaml:"max_weight"`         // Above this the status is Overload
	ScaleFactor       float32       `yaml:"scale_factor"`       // Initial raw counts per weight unit (0 = uncalibrated)
	ReferenceWeight   int32         `yaml:"reference_weight"`   // Weight placed on the pan for calibration
	Deadband          int32         `yaml:"deadband"`           // Hold published weight within +-deadband (0 = off)
}

// MockConfig contains simulated load cell configuration.
type MockConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Offset        int32   `yaml:"offset"`          // Raw reading with an empty pan
	CountsPerUnit float32 `yaml:"counts_per_unit"` // Raw counts per weight unit
	Load          int32   `yaml:"load"`            // Initial load on the pan
	Noise         int32   `yaml:"noise"`           // Peak raw noise amplitude
	FailureRate   float64 `yaml:"failure_rate"`    // Probability a read reports not ready
}

// MQTTConfig contains the MQTT result publisher configuration.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// WebSocketConfig contains the live stream server configuration.
type WebSocketConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// ClickHouseConfig contains the reading recorder configuration.
type ClickHouseConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Database  string `yaml:"database"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Table     string `yaml:"table"`
	BatchSize int    `yaml:"batch_size"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
			Gain:     1,
		},
		Scale: ScaleConfig{
			SmoothingCapacity: 5,
			StabilityCapacity: 3,
			WarmupReads:       10,
			ReadInterval:      100 * time.Millisecond, // HX711 at 10 SPS
			MaxWeight:         5000,
			ScaleFactor:       429.58,
			ReferenceWeight:   100,
			Deadband:          0,
		},
		Mock: MockConfig{
			Enabled:       false,
			Offset:        83886,
			CountsPerUnit: 429.58,
			Load:          0,
			Noise:         40,
			FailureRate:   0.0,
		},
		MQTT: MQTTConfig{
			Enabled:  false,
			Broker:   "tcp://localhost:1883",
			ClientID: "goscale",
			Topic:    "scale/weight",
			QoS:      0,
		},
		WebSocket: WebSocketConfig{
			Enabled: false,
			Listen:  ":8080",
			Path:    "/ws",
		},
		ClickHouse: ClickHouseConfig{
			Enabled:   false,
			Addr:      "localhost:9000",
			Database:  "default",
			Username:  "default",
			Table:     "scale_readings",
			BatchSize: 50,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values. Environment overrides are
// applied last (see applyEnv).
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
// ScaleFactor is left alone: zero is a valid "uncalibrated" state.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.Gain == 0 {
		c.Serial.Gain = def.Serial.Gain
	}

	if c.Scale.SmoothingCapacity <= 0 {
		c.Scale.SmoothingCapacity = def.Scale.SmoothingCapacity
	}
	if c.Scale.StabilityCapacity <= 0 {
		c.Scale.StabilityCapacity = def.Scale.StabilityCapacity
	}
	if c.Scale.WarmupReads <= 0 {
		c.Scale.WarmupReads = def.Scale.WarmupReads
	}
	if c.Scale.ReadInterval <= 0 {
		c.Scale.ReadInterval = def.Scale.ReadInterval
	}
	if c.Scale.MaxWeight == 0 {
		c.Scale.MaxWeight = def.Scale.MaxWeight
	}
	if c.Scale.ReferenceWeight == 0 {
		c.Scale.ReferenceWeight = def.Scale.ReferenceWeight
	}
	if c.Scale.Deadband < 0 {
		c.Scale.Deadband = 0
	}

	if c.Mock.CountsPerUnit == 0 {
		c.Mock.CountsPerUnit = def.Mock.CountsPerUnit
	}

	if c.MQTT.Broker == "" {
		c.MQTT.Broker = def.MQTT.Broker
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}

	if c.WebSocket.Listen == "" {
		c.WebSocket.Listen = def.WebSocket.Listen
	}
	if c.WebSocket.Path == "" {
		c.WebSocket.Path = def.WebSocket.Path
	}

	if c.ClickHouse.Addr == "" {
		c.ClickHouse.Addr = def.ClickHouse.Addr
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = def.ClickHouse.Database
	}
	if c.ClickHouse.Table == "" {
		c.ClickHouse.Table = def.ClickHouse.Table
	}
	if c.ClickHouse.BatchSize <= 0 {
		c.ClickHouse.BatchSize = def.ClickHouse.BatchSize
	}
}
