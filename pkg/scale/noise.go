package scale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itohio/goscale/pkg/hx711"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNoSamples is returned when a noise survey collected no valid readings.
var ErrNoSamples = errors.New("no valid readings collected")

// Noise summarizes raw readings taken with a constant load.
type Noise struct {
	Samples  int     `json:"samples"`
	Failures int     `json:"failures"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// PeakToPeak returns the spread between the smallest and largest reading.
func (n Noise) PeakToPeak() float64 {
	return n.Max - n.Min
}

// Weight expresses the standard deviation in weight units for scaleFactor.
func (n Noise) Weight(scaleFactor float32) float64 {
	if scaleFactor == 0 {
		return 0
	}
	return n.StdDev / float64(scaleFactor)
}

// MeasureNoise reads src attempts times, spaced by interval, and reports
// statistics of the successful readings. It helps choosing window
// capacities and a deadband for a particular load cell.
func MeasureNoise(ctx context.Context, src hx711.Source, attempts int, interval time.Duration) (Noise, error) {
	if attempts <= 0 {
		return Noise{}, fmt.Errorf("invalid attempt count %d", attempts)
	}

	var (
		result Noise
		values = make([]float64, 0, attempts)
	)
	for i := 0; i < attempts; i++ {
		raw, err := src.Read()
		if err != nil {
			result.Failures++
		} else {
			values = append(values, float64(raw))
		}

		if i < attempts-1 && !sleep(ctx, interval) {
			return Noise{}, ctx.Err()
		}
	}

	if len(values) == 0 {
		return result, ErrNoSamples
	}

	result.Samples = len(values)
	result.Mean, result.StdDev = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		// Sample std-dev is undefined for a single reading
		result.StdDev = 0
	}
	result.Min = floats.Min(values)
	result.Max = floats.Max(values)

	return result, nil
}
