package service

import (
	"fmt"
	"time"

	"github.com/himanishpuri/WhistleKey/internal/fingerprint"
	"github.com/himanishpuri/WhistleKey/internal/model"
)

const (
	DefaultKeyLen            = 200
	DefaultVerificationCount = 2
	DefaultFailCeiling       = 3000
	DefaultAcceptanceMargin  = 1.1
	DefaultVerifyDelay       = time.Second
)

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Recorder receives every scored sequence. storage.Journal implements it.
type Recorder interface {
	RecordAttempt(a model.Attempt) error
}

type Config struct {
	KeyLen            int
	VerificationCount int
	Hysteresis        int
	FailCeiling       int
	AcceptanceMargin  float64
	VerifyDelay       time.Duration

	// Zero means wait forever, which is how the device behaves.
	MaxOnsetFrames          int
	MaxVerificationAttempts int

	Logger   Logger
	Recorder Recorder
	Metrics  bool
}

type Option func(*Config)

func WithKeyLen(n int) Option {
	return func(c *Config) {
		c.KeyLen = n
	}
}

func WithVerificationCount(n int) Option {
	return func(c *Config) {
		c.VerificationCount = n
	}
}

func WithHysteresis(bins int) Option {
	return func(c *Config) {
		c.Hysteresis = bins
	}
}

func WithFailCeiling(ceiling int) Option {
	return func(c *Config) {
		c.FailCeiling = ceiling
	}
}

func WithAcceptanceMargin(margin float64) Option {
	return func(c *Config) {
		c.AcceptanceMargin = margin
	}
}

func WithVerifyDelay(d time.Duration) Option {
	return func(c *Config) {
		c.VerifyDelay = d
	}
}

// WithMaxOnsetFrames bounds every onset wait; exceeding it fails the
// capture with fingerprint.ErrOnsetTimeout.
func WithMaxOnsetFrames(n int) Option {
	return func(c *Config) {
		c.MaxOnsetFrames = n
	}
}

// WithMaxVerificationAttempts bounds the verification passes, failed ones
// included; exceeding it abandons training with ErrTrainingAbandoned.
func WithMaxVerificationAttempts(n int) Option {
	return func(c *Config) {
		c.MaxVerificationAttempts = n
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Config) {
		c.Recorder = r
	}
}

// WithMetrics toggles the Prometheus instruments.
func WithMetrics(enabled bool) Option {
	return func(c *Config) {
		c.Metrics = enabled
	}
}

func defaultConfig() *Config {
	return &Config{
		KeyLen:            DefaultKeyLen,
		VerificationCount: DefaultVerificationCount,
		Hysteresis:        fingerprint.DefaultHysteresis,
		FailCeiling:       DefaultFailCeiling,
		AcceptanceMargin:  DefaultAcceptanceMargin,
		VerifyDelay:       DefaultVerifyDelay,
		Metrics:           true,
	}
}

func (c *Config) validate() error {
	switch {
	case c.KeyLen <= 0:
		return fmt.Errorf("%w: key length %d", fingerprint.ErrInvalidConfig, c.KeyLen)
	case c.VerificationCount <= 0:
		return fmt.Errorf("%w: verification count %d", fingerprint.ErrInvalidConfig, c.VerificationCount)
	case c.Hysteresis < 0:
		return fmt.Errorf("%w: hysteresis %d", fingerprint.ErrInvalidConfig, c.Hysteresis)
	case c.FailCeiling < 0:
		return fmt.Errorf("%w: fail ceiling %d", fingerprint.ErrInvalidConfig, c.FailCeiling)
	case c.AcceptanceMargin <= 0:
		return fmt.Errorf("%w: acceptance margin %v", fingerprint.ErrInvalidConfig, c.AcceptanceMargin)
	case c.VerifyDelay < 0:
		return fmt.Errorf("%w: verify delay %v", fingerprint.ErrInvalidConfig, c.VerifyDelay)
	case c.MaxOnsetFrames < 0 || c.MaxVerificationAttempts < 0:
		return fmt.Errorf("%w: negative attempt bound", fingerprint.ErrInvalidConfig)
	}
	return nil
}
