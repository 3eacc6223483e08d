package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

var (
	ErrInvalidWav         = errors.New("not a valid WAV file")
	ErrSampleRateMismatch = errors.New("recording sample rate differs from sampling frequency")
)

// Recording is a decoded mono recording with samples normalized to [-1, 1].
type Recording struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the recording length in seconds.
func (r *Recording) Duration() float64 {
	if r.SampleRate == 0 {
		return 0
	}
	return float64(len(r.Samples)) / float64(r.SampleRate)
}

// ReadWav decodes a PCM WAV file. Multi-channel audio is averaged to mono.
func ReadWav(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidWav)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding PCM data: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptySource)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}

	return &Recording{
		Samples:    downmix(buf.Data, channels, bitDepth),
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// downmix averages interleaved integer frames into normalized mono samples.
func downmix(data []int, channels, bitDepth int) []float64 {
	scale := 1.0 / float64(int64(1)<<uint(bitDepth-1))
	// 8-bit WAV is unsigned
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(data[i*channels+c] - offset)
		}
		out[i] = sum / float64(channels) * scale
	}
	return out
}

// NewWavSource opens a recording for replay as analog input. The file must
// already be at sampleRate Hz (see ConvertToMonoWAV); gain scales the
// normalized signal before it is mapped onto the ADC range.
func NewWavSource(path string, sampleRate int, gain float64) (*SliceSource, error) {
	rec, err := ReadWav(path)
	if err != nil {
		return nil, err
	}
	if rec.SampleRate != sampleRate {
		return nil, fmt.Errorf("%w: %s is %d Hz, expected %d Hz", ErrSampleRateMismatch, path, rec.SampleRate, sampleRate)
	}
	return NewSliceSource(ToADC(rec.Samples, gain))
}
