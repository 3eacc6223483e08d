package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/himanishpuri/WhistleKey/internal/fingerprint"
	"github.com/himanishpuri/WhistleKey/internal/metrics"
	"github.com/himanishpuri/WhistleKey/internal/model"
	"github.com/himanishpuri/WhistleKey/pkg/logger"
)

var (
	ErrNotTrained     = errors.New("no trained key")
	ErrAlreadyTrained = errors.New("key already trained")
)

// WhistleService trains once on a whistled melody and then tests every
// following performance against it.
type WhistleService struct {
	cfg        *Config
	seq        *fingerprint.Sequencer
	enrollment *model.Enrollment
}

func NewWhistleService(extractor fingerprint.Extractor, opts ...Option) (*WhistleService, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if extractor != nil && cfg.Metrics {
		extractor = countingExtractor{extractor}
	}

	seq, err := fingerprint.NewSequencer(extractor, cfg.KeyLen,
		fingerprint.WithMaxOnsetFrames(cfg.MaxOnsetFrames))
	if err != nil {
		return nil, fmt.Errorf("failed to create sequencer: %w", err)
	}

	return &WhistleService{cfg: cfg, seq: seq}, nil
}

// Train runs enrollment. It succeeds at most once per service.
func (s *WhistleService) Train(ctx context.Context) (*model.Enrollment, error) {
	if s.enrollment != nil {
		return nil, ErrAlreadyTrained
	}

	e, err := newEnroller(s.seq, s.cfg).Enroll(ctx)
	if err != nil {
		return nil, err
	}
	s.enrollment = e
	if s.cfg.Metrics {
		metrics.SetThreshold(e.ExpectedError)
	}
	return cloneEnrollment(e), nil
}

// Enrollment returns a copy of the trained state, if any.
func (s *WhistleService) Enrollment() (*model.Enrollment, bool) {
	if s.enrollment == nil {
		return nil, false
	}
	return cloneEnrollment(s.enrollment), true
}

// Matcher returns a matcher bound to the trained key.
func (s *WhistleService) Matcher() (*Matcher, error) {
	return newMatcher(s.enrollment, s.seq, s.cfg)
}

// Listen matches performances until ctx ends or capture fails.
func (s *WhistleService) Listen(ctx context.Context, fn func(model.Outcome)) error {
	m, err := s.Matcher()
	if err != nil {
		return err
	}
	return m.Run(ctx, fn)
}

// Run trains and then listens, the whole life of the device.
func (s *WhistleService) Run(ctx context.Context, fn func(model.Outcome)) error {
	if _, err := s.Train(ctx); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	return s.Listen(ctx, fn)
}

func cloneEnrollment(e *model.Enrollment) *model.Enrollment {
	c := *e
	c.Key = e.Key.Clone()
	c.Passes = append([]int(nil), e.Passes...)
	return &c
}

// record hands a scored sequence to the journal and the metrics. Journal
// failures are logged; they never stop the pipeline.
func record(cfg *Config, a model.Attempt) {
	if cfg.Metrics {
		metrics.RecordAttempt(a)
	}
	if cfg.Recorder == nil {
		return
	}
	if err := cfg.Recorder.RecordAttempt(a); err != nil {
		cfg.Logger.Warnf("Failed to record %s attempt: %v", a.Phase, err)
	}
}

type countingExtractor struct {
	fingerprint.Extractor
}

func (c countingExtractor) Extract(ctx context.Context) (model.Symbol, error) {
	sym, err := c.Extractor.Extract(ctx)
	if err == nil {
		metrics.RecordFrame(sym)
	}
	return sym, err
}
