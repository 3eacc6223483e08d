package audio

import (
	"errors"
	"io"
)

// Source is the analog input: every call returns the current signal
// amplitude. Sources that run dry return io.EOF.
type Source interface {
	ReadAmplitude() (float64, error)
}

// ADC-like scale used when replaying PCM: 10-bit unsigned, biased at
// mid-scale the way a microphone module sits on an analog pin.
const (
	ADCMax  = 1023.0
	ADCBias = 512.0
)

// ErrEmptySource is returned when a source is built from no samples.
var ErrEmptySource = errors.New("audio source has no samples")

// SliceSource replays in-memory amplitudes once, then reports io.EOF.
type SliceSource struct {
	samples []float64
	pos     int
}

func NewSliceSource(samples []float64) (*SliceSource, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySource
	}
	return &SliceSource{samples: samples}, nil
}

func (s *SliceSource) ReadAmplitude() (float64, error) {
	if s.pos >= len(s.samples) {
		return 0, io.EOF
	}
	v := s.samples[s.pos]
	s.pos++
	return v, nil
}

// Remaining reports how many samples are left.
func (s *SliceSource) Remaining() int { return len(s.samples) - s.pos }

// ToADC maps normalized samples in [-1, 1] onto the ADC scale, clamping
// anything outside the converter's range.
func ToADC(samples []float64, gain float64) []float64 {
	if gain == 0 {
		gain = 1
	}
	out := make([]float64, len(samples))
	for i, s := range samples {
		v := ADCBias + s*gain*ADCBias
		switch {
		case v < 0:
			v = 0
		case v > ADCMax:
			v = ADCMax
		}
		out[i] = v
	}
	return out
}
