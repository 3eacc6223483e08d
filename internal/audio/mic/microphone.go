// Package mic reads live amplitudes from the default input device.
package mic

import (
	"errors"

	"github.com/gordonklaus/portaudio"

	"github.com/himanishpuri/WhistleKey/internal/audio"
)

const framesPerBuffer = 64

// stream is the part of *portaudio.Stream the source reads through.
type stream interface {
	Read() error
	Stop() error
	Close() error
}

// Source pulls blocks from the default input stream and hands them out one
// sample at a time on the ADC scale. The device clock sets the cadence, so
// it is meant to be wrapped in an unpaced sampler.
type Source struct {
	stream    stream
	buffer    []int16
	pos       int
	gain      float64
	overflows int
}

func Open(sampleRate int, gain float64) (*Source, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	buffer := make([]int16, framesPerBuffer)

	st, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(buffer), buffer)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	if err := st.Start(); err != nil {
		st.Close()
		portaudio.Terminate()
		return nil, err
	}

	return newSource(st, buffer, gain), nil
}

func newSource(st stream, buffer []int16, gain float64) *Source {
	if gain == 0 {
		gain = 1
	}
	return &Source{
		stream: st,
		buffer: buffer,
		pos:    len(buffer),
		gain:   gain,
	}
}

// Overflows reports how many reads found the device buffer overrun.
func (s *Source) Overflows() int { return s.overflows }

func (s *Source) next() (float64, error) {
	if s.pos >= len(s.buffer) {
		// An overrun means input was dropped while nothing was reading,
		// e.g. across the verification pause; the block itself is current.
		if err := s.stream.Read(); err != nil {
			if !errors.Is(err, portaudio.InputOverflowed) {
				return 0, err
			}
			s.overflows++
		}
		s.pos = 0
	}
	v := float64(s.buffer[s.pos]) / 32768.0
	s.pos++
	return v, nil
}

func (s *Source) ReadAmplitude() (float64, error) {
	v, err := s.next()
	if err != nil {
		return 0, err
	}
	return audio.ToADC([]float64{v}, s.gain)[0], nil
}

// Record captures n normalized samples without gain, for saving to WAV.
func (s *Source) Record(n int) ([]float64, error) {
	out := make([]float64, 0, n)
	for len(out) < n {
		v, err := s.next()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Source) Close() error {
	var err error
	if s.stream != nil {
		if stopErr := s.stream.Stop(); stopErr != nil {
			err = stopErr
		}
		if closeErr := s.stream.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	portaudio.Terminate()
	return err
}
