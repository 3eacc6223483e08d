package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"
)

// Clock supplies monotonic time to the sampler.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock; time.Now carries a monotonic reading.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

var ErrInvalidFrequency = errors.New("sampling frequency must be positive")

// SamplingPeriod returns the inter-sample interval for freq Hz, rounded to
// whole microseconds.
func SamplingPeriod(freq float64) (time.Duration, error) {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return 0, ErrInvalidFrequency
	}
	us := math.Round(1e6 * (1.0 / freq))
	return time.Duration(us) * time.Microsecond, nil
}

// PacedSampler fills frames from a Source at a fixed cadence. Sample i of a
// frame is not taken before frameStart + i*period; between reads the
// sampler yields to the scheduler while it waits out the deadline.
type PacedSampler struct {
	src    Source
	period time.Duration
	clock  Clock
	yield  func()
}

type SamplerOption func(*PacedSampler)

// WithClock replaces the system clock.
func WithClock(c Clock) SamplerOption {
	return func(p *PacedSampler) { p.clock = c }
}

// WithYield replaces runtime.Gosched as the wait-loop yield.
func WithYield(fn func()) SamplerOption {
	return func(p *PacedSampler) { p.yield = fn }
}

// NewPacedSampler paces reads from src at period. A zero period reads as
// fast as the source allows, which is what offline replay wants.
func NewPacedSampler(src Source, period time.Duration, opts ...SamplerOption) *PacedSampler {
	p := &PacedSampler{
		src:    src,
		period: period,
		clock:  SystemClock{},
		yield:  runtime.Gosched,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PacedSampler) Period() time.Duration { return p.period }

// ReadFrame fills buf with consecutive samples.
func (p *PacedSampler) ReadFrame(ctx context.Context, buf []float64) error {
	start := p.clock.Now()
	for i := range buf {
		v, err := p.src.ReadAmplitude()
		if err != nil {
			return fmt.Errorf("reading sample %d: %w", i, err)
		}
		buf[i] = v

		if p.period <= 0 {
			continue
		}
		deadline := start.Add(time.Duration(i+1) * p.period)
		for p.clock.Now().Before(deadline) {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.yield()
		}
	}
	return ctx.Err()
}
