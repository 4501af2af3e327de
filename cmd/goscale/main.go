package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/itohio/goscale/pkg/config"
	"github.com/itohio/goscale/pkg/hx711"
)

type globals struct {
	configPath string
	logLevel   string
	port       string
	mock       bool
}

func main() {
	var g globals

	root := &cobra.Command{
		Use:   "goscale",
		Short: "HX711 load cell weighing service",
		Long: `goscale reads an HX711 load cell amplifier through a serial bridge MCU,
smooths and converts raw conversions into weight, classifies the reading as
stable, unstable, underload or overload and publishes the results to the log,
MQTT, a WebSocket stream and ClickHouse.

Examples:
  goscale run --interactive
  goscale run --mock --log-level debug
  goscale noise --samples 200 --port /dev/ttyUSB0
  goscale ports`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setupLogger(g.logLevel)
		},
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "config.yaml", "configuration file path")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVarP(&g.port, "port", "p", "", "serial port override (e.g. COM3 or /dev/ttyACM0)")
	root.PersistentFlags().BoolVar(&g.mock, "mock", false, "use a simulated load cell instead of the serial bridge")

	root.AddCommand(runCommand(&g), noiseCommand(&g), portsCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func setupLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// loadConfig reads the configuration and applies command line overrides.
func loadConfig(g *globals) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.port != "" {
		cfg.Serial.Port = g.port
	}
	if g.mock {
		cfg.Mock.Enabled = true
	}
	return cfg, nil
}

// openDevice connects the configured device and selects its gain. The mock
// is returned separately so interactive mode can change its load.
func openDevice(cfg *config.Config) (hx711.Device, *hx711.Mock, error) {
	gain := hx711.Gain(cfg.Serial.Gain)
	if !gain.Valid() {
		return nil, nil, fmt.Errorf("invalid serial.gain %d: want 1 (A/128), 2 (B/32) or 3 (A/64)", cfg.Serial.Gain)
	}

	var (
		dev  hx711.Device
		mock *hx711.Mock
	)
	if cfg.Mock.Enabled {
		mock = hx711.NewMock(&cfg.Mock)
		dev = mock
	} else {
		dev = hx711.New(cfg.Serial.Port, cfg.Serial.BaudRate, slog.Default())
	}

	if err := dev.Connect(); err != nil {
		return nil, nil, err
	}
	if err := applyGain(dev, gain); err != nil {
		dev.Close()
		return nil, nil, err
	}
	return dev, mock, nil
}

func applyGain(dev hx711.Device, gain hx711.Gain) error {
	gs, ok := dev.(hx711.GainSetter)
	if !ok {
		return nil
	}
	if err := gs.SetGain(gain); err != nil {
		return fmt.Errorf("failed to set gain %s: %w", gain, err)
	}
	slog.Debug("gain selected", "gain", gain)
	return nil
}
