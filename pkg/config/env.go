package config

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override values from the YAML file.
const (
	EnvSerialPort     = "GOSCALE_SERIAL_PORT"
	EnvSerialBaud     = "GOSCALE_SERIAL_BAUD"
	EnvSerialGain     = "GOSCALE_SERIAL_GAIN"
	EnvMock           = "GOSCALE_MOCK"
	EnvScaleFactor    = "GOSCALE_SCALE_FACTOR"
	EnvMQTTBroker     = "GOSCALE_MQTT_BROKER"
	EnvMQTTTopic      = "GOSCALE_MQTT_TOPIC"
	EnvMQTTUsername   = "GOSCALE_MQTT_USERNAME"
	EnvMQTTPassword   = "GOSCALE_MQTT_PASSWORD"
	EnvWebSocket      = "GOSCALE_WS_LISTEN"
	EnvClickHouseAddr = "GOSCALE_CLICKHOUSE_ADDR"
	EnvClickHousePass = "GOSCALE_CLICKHOUSE_PASSWORD"
)

// applyEnv loads an optional .env file and overrides fields from the
// environment. Unset variables leave the field untouched.
func (c *Config) applyEnv() error {
	// .env is optional
	_ = godotenv.Load()

	setString(&c.Serial.Port, EnvSerialPort)
	setString(&c.MQTT.Broker, EnvMQTTBroker)
	setString(&c.MQTT.Topic, EnvMQTTTopic)
	setString(&c.MQTT.Username, EnvMQTTUsername)
	setString(&c.MQTT.Password, EnvMQTTPassword)
	setString(&c.ClickHouse.Addr, EnvClickHouseAddr)
	setString(&c.ClickHouse.Password, EnvClickHousePass)

	if v, ok := lookup(EnvWebSocket); ok {
		c.WebSocket.Listen = v
		c.WebSocket.Enabled = true
	}

	if v, ok := lookup(EnvSerialBaud); ok {
		baud, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSerialBaud, err)
		}
		c.Serial.BaudRate = baud
	}

	if v, ok := lookup(EnvSerialGain); ok {
		gain, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSerialGain, err)
		}
		c.Serial.Gain = uint8(gain)
	}

	if v, ok := lookup(EnvMock); ok {
		mock, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMock, err)
		}
		c.Mock.Enabled = mock
	}

	if v, ok := lookup(EnvScaleFactor); ok {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvScaleFactor, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("invalid %s: %q is not a finite number", EnvScaleFactor, v)
		}
		c.Scale.ScaleFactor = float32(f)
	}

	return nil
}

func lookup(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}
