package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/WhistleKey/internal/audio"
	"github.com/himanishpuri/WhistleKey/pkg/logger"
)

func main() {
	log := logger.GetLogger()

	input := flag.String("in", "recordings", "WAV file or directory of WAV files")
	outputDir := flag.String("out", "spectrograms", "Directory for the PNG images")
	width := flag.Int("width", 2048, "Image width in pixels")
	height := flag.Int("height", 512, "Image height in pixels, one row per frequency bin")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatalf("Failed to create %s: %v", *outputDir, err)
	}

	count := 0
	err := filepath.WalkDir(*input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".wav" {
			return nil
		}

		out := filepath.Join(*outputDir, filepath.Base(path)+".png")
		if err := render(path, out, *width, *height); err != nil {
			log.Warnf("Skipping %s: %v", path, err)
			return nil
		}
		log.Infof("Saved spectrogram to %s", out)
		count++
		return nil
	})
	if err != nil {
		log.Fatalf("Walking %s: %v", *input, err)
	}

	fmt.Printf("Rendered %d spectrogram(s)\n", count)
}

// render draws a linear magnitude spectrogram of one recording.
func render(path, out string, width, height int) error {
	rec, err := audio.ReadWav(path)
	if err != nil {
		return err
	}
	logger.Debugf("Read %d samples at %d Hz from %s", len(rec.Samples), rec.SampleRate, path)

	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude; log10 washes out whistles
	spectrogram.Drawfft(
		img,
		rec.Samples,
		uint32(rec.SampleRate),
		uint32(height),
		false,
		false,
		true,
		false,
	)

	return spectrogram.SavePng(img, out)
}
