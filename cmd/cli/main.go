package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"

	"github.com/himanishpuri/WhistleKey/internal/audio"
	"github.com/himanishpuri/WhistleKey/internal/audio/mic"
	"github.com/himanishpuri/WhistleKey/internal/fingerprint"
	"github.com/himanishpuri/WhistleKey/internal/metrics"
	"github.com/himanishpuri/WhistleKey/internal/model"
	"github.com/himanishpuri/WhistleKey/internal/service"
	"github.com/himanishpuri/WhistleKey/internal/storage"
	"github.com/himanishpuri/WhistleKey/pkg/logger"
)

// Global flags
var (
	sampleRate int
	frameSize  int
	windowName string
	tempDir    string
	gain       float64
)

func init() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	flag.IntVar(&sampleRate, "rate", getEnvIntOrDefault("WHISTLE_SAMPLE_RATE", fingerprint.DefaultSamplingFrequency), "Sampling frequency in Hz")
	flag.IntVar(&frameSize, "samples", getEnvIntOrDefault("WHISTLE_SAMPLES", fingerprint.DefaultSamples), "Samples per analysis frame (power of two)")
	flag.StringVar(&windowName, "window", getEnvOrDefault("WHISTLE_WINDOW", fingerprint.WindowHamming.String()), "Analysis window")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("WHISTLE_TEMP_DIR", os.TempDir()), "Directory for converted recordings")
	flag.Float64Var(&gain, "gain", 1, "Gain applied to recorded audio before the ADC mapping")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	printBanner()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	log := logger.GetLogger()
	command := args[0]
	log.Debugf("Executing command: %s", command)

	switch command {
	case "listen":
		os.Exit(handleListen(args[1:]))
	case "symbols":
		os.Exit(handleSymbols(args[1:]))
	case "record":
		os.Exit(handleRecord(args[1:]))
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
 __        ___     _     _   _      _  __
 \ \      / / |__ (_)___| |_| | ___| |/ /___ _   _
  \ \ /\ / /| '_ \| / __| __| |/ _ \ ' // _ \ | | |
   \ V  V / | | | | \__ \ |_| |  __/ . \  __/ |_| |
    \_/\_/  |_| |_|_|___/\__|_|\___|_|\_\___|\__, |
                                             |___/
           Whistled Melody Lock
`
	fmt.Println(banner)
}

func extractorConfig() (fingerprint.ExtractorConfig, error) {
	w, err := fingerprint.ParseWindow(windowName)
	if err != nil {
		return fingerprint.ExtractorConfig{}, err
	}
	cfg := fingerprint.DefaultExtractorConfig()
	cfg.Samples = frameSize
	cfg.SamplingFrequency = float64(sampleRate)
	cfg.Window = w
	return cfg, cfg.Validate()
}

// openRecording loads a recording as an amplitude source, converting it
// with ffmpeg first when it is not already a WAV at the sampling frequency.
func openRecording(ctx context.Context, path string) (*audio.SliceSource, error) {
	log := logger.GetLogger()

	src, err := audio.NewWavSource(path, sampleRate, gain)
	if err == nil {
		return src, nil
	}
	if !errors.Is(err, audio.ErrSampleRateMismatch) && !errors.Is(err, audio.ErrInvalidWav) {
		return nil, err
	}

	log.Infof("Converting %s to %d Hz mono (%v)", path, sampleRate, err)
	converted, err := audio.ConvertToMonoWAV(ctx, path, tempDir, audio.ConvertWAVConfig{SampleRate: sampleRate})
	if err != nil {
		return nil, fmt.Errorf("converting %s: %w", path, err)
	}
	defer os.Remove(converted)

	return audio.NewWavSource(converted, sampleRate, gain)
}

// openSource returns the amplitude source and the pacing period to read it
// at. The microphone is paced by the device itself.
func openSource(ctx context.Context, source string, realtime bool) (audio.Source, time.Duration, func(), error) {
	if source == "mic" {
		m, err := mic.Open(sampleRate, gain)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("opening microphone: %w", err)
		}
		closeMic := func() {
			if n := m.Overflows(); n > 0 {
				logger.Debugf("Microphone input overran %d times", n)
			}
			m.Close()
		}
		return m, 0, closeMic, nil
	}

	src, err := openRecording(ctx, source)
	if err != nil {
		return nil, 0, nil, err
	}
	var period time.Duration
	if realtime {
		if period, err = audio.SamplingPeriod(float64(sampleRate)); err != nil {
			return nil, 0, nil, err
		}
	}
	return src, period, func() {}, nil
}

func handleListen(args []string) int {
	log := logger.GetLogger()

	listenCmd := flag.NewFlagSet("listen", flag.ExitOnError)
	source := listenCmd.String("source", getEnvOrDefault("WHISTLE_SOURCE", "mic"), "Input: \"mic\" or a path to a recording")
	realtime := listenCmd.Bool("realtime", false, "Replay recordings at the sampling frequency instead of as fast as possible")
	keyLen := listenCmd.Int("key-len", service.DefaultKeyLen, "Frames per melody")
	hysteresis := listenCmd.Int("hysteresis", fingerprint.DefaultHysteresis, "Bins a note may drift for free")
	delay := listenCmd.Duration("verify-delay", service.DefaultVerifyDelay, "Pause before each verification pass")
	maxOnset := listenCmd.Int("max-onset", 0, "Give up after this many silent frames (0 waits forever)")
	maxVerify := listenCmd.Int("max-verify", 0, "Give up training after this many passes (0 retries forever)")
	metricsFile := listenCmd.String("metrics-file", getEnvOrDefault("WHISTLE_METRICS_FILE", ""), "Write a Prometheus text snapshot here on exit")
	listenCmd.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := extractorConfig()
	if err != nil {
		log.Errorf("Invalid configuration: %v", err)
		return 1
	}

	src, period, closeSrc, err := openSource(ctx, *source, *realtime)
	if err != nil {
		log.Errorf("Failed to open source %q: %s", *source, withStack(err))
		return 1
	}
	defer closeSrc()

	extractor, err := fingerprint.NewPeakExtractor(cfg, audio.NewPacedSampler(src, period), nil)
	if err != nil {
		log.Errorf("Failed to create extractor: %v", err)
		return 1
	}

	journal, err := storage.NewJournal()
	if err != nil {
		log.Errorf("Failed to open session journal: %v", err)
		return 1
	}
	defer journal.Close()

	svc, err := service.NewWhistleService(extractor,
		service.WithKeyLen(*keyLen),
		service.WithHysteresis(*hysteresis),
		service.WithVerifyDelay(*delay),
		service.WithMaxOnsetFrames(*maxOnset),
		service.WithMaxVerificationAttempts(*maxVerify),
		service.WithLogger(log),
		service.WithRecorder(journal),
	)
	if err != nil {
		log.Errorf("Failed to create service: %v", err)
		return 1
	}

	log.Infof("Session %s: %d Hz, %d-sample frames, %s window, source %s",
		journal.SessionID(), sampleRate, cfg.Samples, cfg.Window, *source)

	err = svc.Run(ctx, func(o model.Outcome) {
		fmt.Printf("distance %d, expected error %d, matched %v\n", o.Distance, o.Threshold, o.Matched)
	})

	_, trained := svc.Enrollment()
	code, status := exitStatus(err, trained)
	switch {
	case code == 0:
		log.Infof("%s", status)
	case errors.Is(err, io.EOF):
		log.Errorf("%s: %v", status, err)
	default:
		log.Errorf("%s: %s", status, withStack(err))
	}

	printSummary(journal)

	if *metricsFile != "" {
		if err := metrics.WriteTextfile(*metricsFile); err != nil {
			log.Warnf("Failed to write metrics to %s: %v", *metricsFile, err)
		} else {
			log.Infof("Metrics written to %s", *metricsFile)
		}
	}
	return code
}

// withStack renders err with the stack trace captured at this point.
func withStack(err error) string {
	return xerrors.Sprint(xerrors.New(err))
}

// exitStatus maps the end of a listening session to an exit code. A source
// that runs dry only counts as a clean end once a key has been trained.
func exitStatus(err error, trained bool) (int, string) {
	switch {
	case err == nil:
		return 0, "Stopped"
	case errors.Is(err, context.Canceled):
		return 0, "Interrupted"
	case errors.Is(err, io.EOF) && trained:
		return 0, "Recording finished"
	case errors.Is(err, io.EOF):
		return 1, "Recording ended before training completed"
	default:
		return 1, "Listening stopped"
	}
}

func printSummary(j *storage.Journal) {
	log := logger.GetLogger()

	sum, err := j.Summary()
	if err != nil {
		log.Warnf("Failed to summarise session: %v", err)
		return
	}

	fmt.Printf("\nSession %s\n", sum.SessionID)
	fmt.Printf("   Verification: %d accepted, %d rejected\n", sum.VerifyAccepted, sum.VerifyRejected)
	fmt.Printf("   Listening:    %d correct, %d wrong\n", sum.Matches, sum.Mismatches)
	if sum.Matches+sum.Mismatches > 0 {
		fmt.Printf("   Mean error:   %.1f\n", sum.MeanMatchError)
	}
	peak, none := metrics.Frames()
	fmt.Printf("   Frames:       %.0f with a note, %.0f silent\n", peak, none)
	if sum.VerifyAccepted+sum.VerifyRejected+sum.Matches+sum.Mismatches > 0 {
		fmt.Printf("   Distances:    %d to %d\n", sum.LowestDistance, sum.HighestDistance)
	}
}

func handleSymbols(args []string) int {
	log := logger.GetLogger()

	if len(args) < 1 {
		fmt.Println("Usage: whistlekey symbols <recording>")
		return 1
	}
	path := args[0]

	cfg, err := extractorConfig()
	if err != nil {
		log.Errorf("Invalid configuration: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := openRecording(ctx, path)
	if err != nil {
		log.Errorf("Failed to open %s: %s", path, withStack(err))
		return 1
	}

	extractor, err := fingerprint.NewPeakExtractor(cfg, audio.NewPacedSampler(src, 0), nil)
	if err != nil {
		log.Errorf("Failed to create extractor: %v", err)
		return 1
	}

	for frame := 0; ; frame++ {
		sym, err := extractor.Extract(ctx)
		if errors.Is(err, io.EOF) {
			log.Infof("%d frames analysed", frame)
			return 0
		}
		if err != nil {
			log.Errorf("Frame %d: %v", frame, err)
			return 1
		}
		if !sym.IsPeak() {
			fmt.Printf("%5d  -\n", frame)
			continue
		}
		fmt.Printf("%5d  %3d  %7.1f Hz\n", frame, sym,
			fingerprint.BinFrequency(int(sym), cfg.Samples, cfg.SamplingFrequency))
	}
}

func handleRecord(args []string) int {
	log := logger.GetLogger()

	recordCmd := flag.NewFlagSet("record", flag.ExitOnError)
	output := recordCmd.String("o", "whistle.wav", "Output WAV file")
	seconds := recordCmd.Float64("seconds", 10, "Recording length")
	recordCmd.Parse(args)

	n := int(*seconds * float64(sampleRate))
	if n <= 0 {
		log.Errorf("Nothing to record: %v seconds at %d Hz", *seconds, sampleRate)
		return 1
	}

	m, err := mic.Open(sampleRate, 1)
	if err != nil {
		log.Errorf("Failed to open microphone: %v", err)
		return 1
	}
	defer m.Close()

	fmt.Printf("Recording %.1fs at %d Hz, whistle now...\n", *seconds, sampleRate)
	samples, err := m.Record(n)
	if err != nil {
		log.Errorf("Recording failed after %d samples: %v", len(samples), err)
		return 1
	}

	if err := audio.WriteWav(*output, samples, sampleRate); err != nil {
		log.Errorf("Failed to write %s: %v", *output, err)
		return 1
	}
	fmt.Printf("Saved %d samples to %s\n", len(samples), *output)
	return 0
}

func printUsage() {
	fmt.Println("WhistleKey - whistled melody lock")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --rate <hz>        Sampling frequency (env: WHISTLE_SAMPLE_RATE, default: 1000)")
	fmt.Println("  --samples <n>      Samples per frame (env: WHISTLE_SAMPLES, default: 128)")
	fmt.Println("  --window <name>    hamming, hann, blackman, bartlett, flattop, rectangular (env: WHISTLE_WINDOW)")
	fmt.Println("  --temp <dir>       Directory for converted recordings (env: WHISTLE_TEMP_DIR)")
	fmt.Println("  --gain <x>         Gain applied before the ADC mapping (default: 1)")
	fmt.Println("\nUsage:")
	fmt.Println("  whistlekey [global-options] listen [--source mic|<file>] [--realtime] [--metrics-file <path>]")
	fmt.Println("  whistlekey [global-options] symbols <file>")
	fmt.Println("  whistlekey [global-options] record [-o whistle.wav] [--seconds 10]")
	fmt.Println("\nExamples:")
	fmt.Println("  # Train and listen on the microphone")
	fmt.Println("  whistlekey listen")
	fmt.Println()
	fmt.Println("  # Replay a recorded session (key, two repetitions, then attempts)")
	fmt.Println("  whistlekey listen --source session.wav --verify-delay 0")
	fmt.Println()
	fmt.Println("  # Inspect the notes the detector hears")
	fmt.Println("  whistlekey --window hann symbols whistle.wav")
}
