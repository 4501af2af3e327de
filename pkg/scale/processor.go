package scale

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/itohio/goscale/pkg/config"
	"github.com/itohio/goscale/pkg/hx711"
	"github.com/itohio/goscale/pkg/sample"
)

// Processor turns raw HX711 readings into calibrated, classified weight
// results. Run owns the smoothing and stability windows; Tare and Calibrate
// may be called from any goroutine while it runs.
type Processor struct {
	cfg config.ScaleConfig
	src hx711.Source
	log *slog.Logger

	// Owned by the sampling goroutine
	smoothing *sample.Window[int32] // raw readings
	stability *sample.Window[int32] // smoothed averages
	held      int32                 // last published weight for the deadband
	hasHeld   bool

	cal     *Calibration
	results *Latest[Result]
	warm    atomic.Bool
	running atomic.Bool
	now     func() time.Time
}

// New creates a Processor reading from src. Sampling starts with WarmUp/Run/Start.
func New(cfg config.ScaleConfig, src hx711.Source, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		cfg:       cfg,
		src:       src,
		log:       logger.With("component", "scale"),
		smoothing: sample.NewWindow[int32](cfg.SmoothingCapacity),
		stability: sample.NewWindow[int32](cfg.StabilityCapacity),
		cal:       NewCalibration(cfg.ScaleFactor),
		results:   NewLatest[Result](),
		now:       time.Now,
	}
}

// Results returns the latest-wins result channel. It is closed when Run returns.
func (p *Processor) Results() <-chan Result {
	return p.results.C()
}

// Calibration returns the shared calibration state.
func (p *Processor) Calibration() *Calibration {
	return p.cal
}

// ZeroOffset returns the current zero offset.
func (p *Processor) ZeroOffset() int32 { return p.cal.ZeroOffset() }

// ScaleFactor returns the current scale factor.
func (p *Processor) ScaleFactor() float32 { return p.cal.ScaleFactor() }

// LatestAverage returns the most recent smoothed reading.
func (p *Processor) LatestAverage() int32 { return p.cal.LatestAverage() }

// Tare zeroes the scale at the current smoothed reading.
func (p *Processor) Tare() {
	zero := p.cal.Tare()
	p.log.Info("tare", "zero_offset", zero)
}

// Calibrate sets the scale factor from the current reading with
// referenceWeight on the pan and returns the stored factor.
func (p *Processor) Calibrate(referenceWeight int32) (float32, error) {
	factor, err := p.cal.Calibrate(referenceWeight)
	if err != nil {
		return 0, err
	}

	p.log.Info("calibrated", "reference_weight", referenceWeight, "scale_factor", factor)
	if factor == 0 {
		p.log.Warn("scale factor is zero, tare before calibrating with a load on the pan")
	}

	return factor, nil
}

// WarmUp fills the smoothing window and zeroes the scale at the resulting
// average. Failed reads are skipped but still wait out the read interval.
func (p *Processor) WarmUp(ctx context.Context) error {
	var failed int
	for i := 0; i < p.cfg.WarmupReads; i++ {
		raw, err := p.src.Read()
		if err != nil {
			failed++
			p.log.Debug("warm-up read failed", "attempt", i+1, "err", err)
		} else {
			p.smoothing.Push(raw)
		}

		if !sleep(ctx, p.cfg.ReadInterval) {
			return ctx.Err()
		}
	}

	avg := p.smoothing.Average()
	if p.smoothing.Len() > 0 {
		p.stability.Push(avg)
	} else {
		p.log.Warn("no valid readings during warm-up", "attempts", p.cfg.WarmupReads)
	}
	p.cal.SetLatestAverage(avg)
	p.cal.SetZeroOffset(avg)
	p.warm.Store(true)

	p.log.Info("warm-up complete", "zero_offset", avg, "failed_reads", failed)
	return nil
}

// Run warms up if needed and samples until ctx is cancelled. Per-cycle
// failures are published as Error results and never stop the loop. The
// result channel is closed on return.
func (p *Processor) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return errors.New("processor already running")
	}
	defer p.results.Close()

	if !p.warm.Load() {
		if err := p.WarmUp(ctx); err != nil {
			return err
		}
	}

	for {
		p.cycle()

		if !sleep(ctx, p.cfg.ReadInterval) {
			return ctx.Err()
		}
	}
}

// Start runs the processor in a new goroutine. The returned channel receives
// Run's error once it returns.
func (p *Processor) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx)
	}()
	return done
}

// cycle performs one read, filter, convert, classify and publish step.
func (p *Processor) cycle() Result {
	raw, err := p.src.Read()
	if err != nil {
		p.log.Warn("failed to read ADC", "err", err)
		return p.publish(0, Error)
	}

	p.smoothing.Push(raw)
	avg := p.smoothing.Average()
	p.cal.SetLatestAverage(avg)
	p.stability.Push(avg)

	zero := p.cal.ZeroOffset()
	factor := p.cal.ScaleFactor()

	weight, err := Transform(avg, zero, factor)
	if err != nil {
		p.log.Warn("failed to convert weight", "err", err)
		return p.publish(0, Error)
	}

	status, err := classify(weight, p.stability, zero, factor, p.cfg.MaxWeight)
	if err != nil {
		p.log.Debug("stability check failed", "err", err)
	}
	return p.publish(p.debounce(weight), status)
}

// debounce holds the previously published weight while the new one stays
// within the configured deadband.
func (p *Processor) debounce(weight int32) int32 {
	if p.cfg.Deadband <= 0 {
		return weight
	}

	if p.hasHeld {
		diff := weight - p.held
		if diff < 0 {
			diff = -diff
		}
		if diff <= p.cfg.Deadband {
			return p.held
		}
	}

	p.held, p.hasHeld = weight, true
	return weight
}

func (p *Processor) publish(weight int32, status Status) Result {
	r := Result{
		Timestamp: p.now(),
		Weight:    weight,
		Status:    status,
	}
	if p.results.Publish(r) {
		p.log.Debug("dropped undelivered result")
	}
	return r
}

// sleep waits for d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
