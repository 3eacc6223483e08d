package fingerprint

import (
	"context"
	"errors"
	"fmt"

	"github.com/himanishpuri/WhistleKey/internal/model"
)

// Tunables
const (
	DefaultSamples           = 128  // frame length, power of two
	DefaultSamplingFrequency = 1000 // Hz
	DefaultPeakFloor         = 1500 // magnitude a peak must exceed
	DefaultMinBin            = 5    // bins below this carry DC and mains hum
)

var ErrInvalidConfig = errors.New("invalid fingerprint configuration")

// ExtractorConfig describes how one frame becomes a Symbol.
type ExtractorConfig struct {
	Samples           int
	SamplingFrequency float64
	Window            WindowType
	PeakFloor         float64
	MinBin            int
}

func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		Samples:           DefaultSamples,
		SamplingFrequency: DefaultSamplingFrequency,
		Window:            WindowHamming,
		PeakFloor:         DefaultPeakFloor,
		MinBin:            DefaultMinBin,
	}
}

func (c ExtractorConfig) Validate() error {
	if c.Samples < 2 || c.Samples&(c.Samples-1) != 0 {
		return fmt.Errorf("%w: samples %d is not a power of two", ErrInvalidConfig, c.Samples)
	}
	if c.SamplingFrequency <= 0 {
		return fmt.Errorf("%w: sampling frequency %v", ErrInvalidConfig, c.SamplingFrequency)
	}
	if c.MinBin < 0 || c.MinBin >= c.Samples/2 {
		return fmt.Errorf("%w: min bin %d outside [0, %d)", ErrInvalidConfig, c.MinBin, c.Samples/2)
	}
	if c.PeakFloor < 0 {
		return fmt.Errorf("%w: negative peak floor", ErrInvalidConfig)
	}
	return nil
}

// FrameReader fills a frame with consecutive amplitudes.
type FrameReader interface {
	ReadFrame(ctx context.Context, buf []float64) error
}

// Extractor yields one Symbol per frame.
type Extractor interface {
	Extract(ctx context.Context) (model.Symbol, error)
}

// PeakExtractor samples a frame, transforms it and reports its dominant bin.
type PeakExtractor struct {
	cfg       ExtractorConfig
	frames    FrameReader
	transform Transform
}

// NewPeakExtractor builds an extractor. A nil transform means FFTTransform.
func NewPeakExtractor(cfg ExtractorConfig, frames FrameReader, transform Transform) (*PeakExtractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if frames == nil {
		return nil, fmt.Errorf("%w: nil frame reader", ErrInvalidConfig)
	}
	if transform == nil {
		transform = FFTTransform{}
	}
	return &PeakExtractor{cfg: cfg, frames: frames, transform: transform}, nil
}

func (e *PeakExtractor) Config() ExtractorConfig { return e.cfg }

// Extract reads one frame and returns its peak bin, or model.NoPeak.
func (e *PeakExtractor) Extract(ctx context.Context) (model.Symbol, error) {
	frame := make([]float64, e.cfg.Samples)
	if err := e.frames.ReadFrame(ctx, frame); err != nil {
		return model.NoPeak, err
	}

	mags := e.transform.Magnitudes(frame, e.cfg.Window)
	return PeakLocation(mags, e.cfg.PeakFloor, e.cfg.MinBin), nil
}

// PeakLocation returns the bin in [minBin, len(mags)) with the largest
// magnitude above floor. The first bin to reach a new maximum wins.
func PeakLocation(mags []float64, floor float64, minBin int) model.Symbol {
	if minBin < 0 {
		minBin = 0
	}
	peak := floor
	loc := model.NoPeak
	for i := minBin; i < len(mags); i++ {
		if mags[i] > peak {
			peak = mags[i]
			loc = model.Symbol(i)
		}
	}
	return loc
}
