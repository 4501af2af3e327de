package sink

import (
	"context"
	"errors"
	"log/slog"

	"github.com/itohio/goscale/pkg/scale"
)

// Sink consumes weight results.
type Sink interface {
	Send(ctx context.Context, r scale.Result) error
	Close() error
}

// Dispatcher drains a result channel and forwards every result to each sink.
type Dispatcher struct {
	sinks []Sink
	log   *slog.Logger
}

// NewDispatcher creates a dispatcher. Nil sinks are ignored.
func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{log: logger.With("component", "dispatcher")}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// Run forwards results until in is closed or ctx is done. A failing sink is
// logged and does not stop delivery to the others.
func (d *Dispatcher) Run(ctx context.Context, in <-chan scale.Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-in:
			if !ok {
				return
			}
			for _, s := range d.sinks {
				if err := s.Send(ctx, r); err != nil {
					d.log.Warn("sink failed", "sink", sinkName(s), "err", err)
				}
			}
		}
	}
}

// Close closes all sinks, returning their joined errors.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, s := range d.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sinkName(s Sink) string {
	switch s.(type) {
	case *Log:
		return "log"
	case *MQTT:
		return "mqtt"
	case *Hub:
		return "websocket"
	case *ClickHouse:
		return "clickhouse"
	default:
		return "custom"
	}
}
