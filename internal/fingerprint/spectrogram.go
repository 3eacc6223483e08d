package fingerprint

import (
	"fmt"
	"math/cmplx"
	"strings"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// WindowType selects the taper applied to a frame before the transform.
type WindowType int

const (
	WindowHamming WindowType = iota
	WindowHann
	WindowBlackman
	WindowBartlett
	WindowFlatTop
	WindowRectangular
)

var windowNames = map[WindowType]string{
	WindowHamming:     "hamming",
	WindowHann:        "hann",
	WindowBlackman:    "blackman",
	WindowBartlett:    "bartlett",
	WindowFlatTop:     "flattop",
	WindowRectangular: "rectangular",
}

func (w WindowType) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("window(%d)", int(w))
}

// ParseWindow maps a window name such as "hamming" to its WindowType.
func ParseWindow(name string) (WindowType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for w, n := range windowNames {
		if n == name {
			return w, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown window %q", ErrInvalidConfig, name)
}

func (w WindowType) function() func(int) []float64 {
	switch w {
	case WindowHann:
		return window.Hann
	case WindowBlackman:
		return window.Blackman
	case WindowBartlett:
		return window.Bartlett
	case WindowFlatTop:
		return window.FlatTop
	case WindowRectangular:
		return window.Rectangular
	default:
		return window.Hamming
	}
}

// Transform turns one time-domain frame into a magnitude per bin for the
// positive frequencies (len(frame)/2 bins).
type Transform interface {
	Magnitudes(frame []float64, w WindowType) []float64
}

// FFTTransform is the forward real FFT from go-dsp.
type FFTTransform struct{}

func (FFTTransform) Magnitudes(frame []float64, w WindowType) []float64 {
	buf := make([]float64, len(frame))
	copy(buf, frame)
	window.Apply(buf, w.function())
	return MagnitudeSpectrum(fft.FFTReal(buf))
}

// MagnitudeSpectrum converts a complex spectrum into a magnitude spectrum (positive freqs only)
func MagnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum) / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// BinFrequency returns the centre frequency in Hz of bin for a frame of
// samples taken at sampleRate.
func BinFrequency(bin, samples int, sampleRate float64) float64 {
	return float64(bin) * sampleRate / float64(samples)
}
