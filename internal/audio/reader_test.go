package audio

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeTestWav(t *testing.T, samples []float64, rate int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.wav")
	if err := WriteWav(path, samples, rate); err != nil {
		t.Fatalf("WriteWav failed: %v", err)
	}
	return path
}

func TestWavRoundTrip(t *testing.T) {
	samples := make([]float64, 256)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*float64(i)/16)
	}
	path := writeTestWav(t, samples, 1000)

	rec, err := ReadWav(path)
	if err != nil {
		t.Fatalf("ReadWav failed: %v", err)
	}

	if rec.SampleRate != 1000 {
		t.Errorf("Expected sample rate 1000, got %d", rec.SampleRate)
	}
	if len(rec.Samples) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(rec.Samples))
	}
	for i := range samples {
		if math.Abs(rec.Samples[i]-samples[i]) > 1e-3 {
			t.Errorf("sample %d: got %f, expected %f", i, rec.Samples[i], samples[i])
			break
		}
	}
	if d := rec.Duration(); math.Abs(d-0.256) > 1e-9 {
		t.Errorf("Expected duration 0.256s, got %f", d)
	}
}

func TestReadWavInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.wav")
	if err := os.WriteFile(path, []byte("INVALID HEADER DATA"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadWav(path); err == nil {
		t.Error("ReadWav should fail on invalid file")
	}
}

func TestReadWavMissingFile(t *testing.T) {
	if _, err := ReadWav(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Error("ReadWav should fail on a missing file")
	}
}

func TestDownmix(t *testing.T) {
	// two stereo frames at 16 bits
	data := []int{16384, -16384, 32767, 32767}
	out := downmix(data, 2, 16)

	if len(out) != 2 {
		t.Fatalf("Expected 2 mono frames, got %d", len(out))
	}
	if out[0] != 0 {
		t.Errorf("Expected opposing channels to cancel, got %f", out[0])
	}
	if math.Abs(out[1]-32767.0/32768.0) > 1e-9 {
		t.Errorf("Expected near full scale, got %f", out[1])
	}

	// 8-bit PCM is unsigned around 128
	out = downmix([]int{128, 255, 0}, 1, 8)
	if out[0] != 0 || out[1] <= 0 || out[2] != -1 {
		t.Errorf("unexpected 8-bit downmix: %v", out)
	}
}

func TestNewWavSource(t *testing.T) {
	path := writeTestWav(t, []float64{0, 1, -1}, 1000)

	src, err := NewWavSource(path, 1000, 1)
	if err != nil {
		t.Fatalf("NewWavSource failed: %v", err)
	}

	var got []float64
	for {
		v, err := src.ReadAmplitude()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, v)
	}

	if len(got) != 3 {
		t.Fatalf("Expected 3 amplitudes, got %d", len(got))
	}
	if got[0] != ADCBias {
		t.Errorf("silence should sit at mid-scale, got %f", got[0])
	}
	if got[1] < ADCMax-1 || got[2] > 1 {
		t.Errorf("full-scale samples should reach the rails, got %v", got)
	}
}

func TestNewWavSourceRateMismatch(t *testing.T) {
	path := writeTestWav(t, []float64{0, 0}, 8000)

	_, err := NewWavSource(path, 1000, 1)
	if !errors.Is(err, ErrSampleRateMismatch) {
		t.Errorf("Expected ErrSampleRateMismatch, got %v", err)
	}
}

func TestToADCClamps(t *testing.T) {
	out := ToADC([]float64{0, 0.5, 3, -3}, 1)

	expected := []float64{512, 768, ADCMax, 0}
	for i := range expected {
		if out[i] != expected[i] {
			t.Errorf("ToADC[%d] = %f, expected %f", i, out[i], expected[i])
		}
	}

	// zero gain means unity
	if ToADC([]float64{0.5}, 0)[0] != 768 {
		t.Error("zero gain should behave as unity gain")
	}
}

func TestNewSliceSourceEmpty(t *testing.T) {
	if _, err := NewSliceSource(nil); !errors.Is(err, ErrEmptySource) {
		t.Errorf("Expected ErrEmptySource, got %v", err)
	}
}
