package sink

import (
	"context"
	"log/slog"

	"github.com/itohio/goscale/pkg/scale"
)

// Log writes a line whenever the weight or status changes.
type Log struct {
	log  *slog.Logger
	last scale.Result
	seen bool
}

// NewLog creates a logging sink.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{log: logger.With("component", "weight")}
}

// Send logs r unless it repeats the previous result.
func (l *Log) Send(_ context.Context, r scale.Result) error {
	if l.seen && r.Weight == l.last.Weight && r.Status == l.last.Status {
		return nil
	}
	l.last, l.seen = r, true

	if r.Status == scale.Error {
		l.log.Warn("weight unavailable", "status", r.Status)
		return nil
	}
	l.log.Info("weight", "value", r.Weight, "status", r.Status)
	return nil
}

// Close is a no-op.
func (l *Log) Close() error {
	return nil
}
