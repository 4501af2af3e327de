package scale

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/itohio/goscale/pkg/sample"
)

// Status classifies a weight result.
type Status int

const (
	Unstable Status = iota
	Stable
	Underload
	Overload
	Error
)

func (s Status) String() string {
	switch s {
	case Unstable:
		return "unstable"
	case Stable:
		return "stable"
	case Underload:
		return "underload"
	case Overload:
		return "overload"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is produced once per sampling cycle. When Status is Error the
// Weight is 0 and must not be used.
type Result struct {
	Timestamp time.Time `json:"timestamp"`
	Weight    int32     `json:"weight"`
	Status    Status    `json:"status"`
}

// Valid reports whether the weight carries a measurement.
func (r Result) Valid() bool {
	return r.Status != Error
}

// IsStable reports whether every average in the stability window converts to
// the same weight. A window that is not yet full is never stable, and a
// conversion failure makes the window unstable.
func IsStable(window *sample.Window[int32], zeroOffset int32, scaleFactor float32) bool {
	stable, err := checkStable(window, zeroOffset, scaleFactor)
	if err != nil {
		slog.Debug("stability check failed", "err", err)
	}
	return stable
}

func checkStable(window *sample.Window[int32], zeroOffset int32, scaleFactor float32) (bool, error) {
	if !window.Full() {
		return false, nil
	}

	var (
		first   int32
		seen    bool
		stable  = true
		failure error
	)
	window.All(func(avg int32) bool {
		weight, err := Transform(avg, zeroOffset, scaleFactor)
		if err != nil {
			stable, failure = false, err
			return false
		}
		if !seen {
			first, seen = weight, true
			return true
		}
		if weight != first {
			stable = false
			return false
		}
		return true
	})

	return stable, failure
}

// Classify derives the status of weight. Underload takes priority over
// Overload, which takes priority over the stability check.
func Classify(weight int32, window *sample.Window[int32], zeroOffset int32, scaleFactor float32, maxWeight int32) Status {
	status, err := classify(weight, window, zeroOffset, scaleFactor, maxWeight)
	if err != nil {
		slog.Debug("stability check failed", "err", err)
	}
	return status
}

// classify is Classify that also returns the stability check failure.
func classify(weight int32, window *sample.Window[int32], zeroOffset int32, scaleFactor float32, maxWeight int32) (Status, error) {
	switch {
	case weight < 0:
		return Underload, nil
	case weight > maxWeight:
		return Overload, nil
	}

	stable, err := checkStable(window, zeroOffset, scaleFactor)
	if stable {
		return Stable, nil
	}
	return Unstable, err
}
