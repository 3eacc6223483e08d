package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/himanishpuri/WhistleKey/internal/fingerprint"
	"github.com/himanishpuri/WhistleKey/internal/model"
)

var ErrTrainingAbandoned = errors.New("training abandoned")

// Enroller captures the key and estimates how consistently the user can
// repeat it.
type Enroller struct {
	seq   *fingerprint.Sequencer
	cfg   *Config
	sleep func(ctx context.Context, d time.Duration) error
}

func newEnroller(seq *fingerprint.Sequencer, cfg *Config) *Enroller {
	return &Enroller{seq: seq, cfg: cfg, sleep: sleepContext}
}

// Enroll runs the whole training procedure: wait for the melody, record it
// as the key, then collect VerificationCount repetitions whose distance to
// the key stays within the fail ceiling.
func (e *Enroller) Enroll(ctx context.Context) (*model.Enrollment, error) {
	log := e.cfg.Logger
	log.Infof("START TRAINING")

	if err := e.seq.AwaitOnset(ctx); err != nil {
		return nil, fmt.Errorf("waiting for melody: %w", err)
	}
	key, err := e.seq.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("capturing key: %w", err)
	}
	log.Debugf("Captured key of %d frames", len(key))

	passes := make([]int, 0, e.cfg.VerificationCount)
	rejected := 0
	for attempts := 0; len(passes) < e.cfg.VerificationCount; attempts++ {
		if limit := e.cfg.MaxVerificationAttempts; limit > 0 && attempts >= limit {
			return nil, fmt.Errorf("%w: %d of %d passes accepted after %d attempts",
				ErrTrainingAbandoned, len(passes), e.cfg.VerificationCount, attempts)
		}

		if err := e.sleep(ctx, e.cfg.VerifyDelay); err != nil {
			return nil, err
		}

		log.Infof("Verify training")
		dist, err := e.verify(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("verification pass %d: %w", attempts+1, err)
		}

		ok := dist <= e.cfg.FailCeiling
		record(e.cfg, model.Attempt{
			Phase:     model.PhaseVerify,
			Distance:  dist,
			Accepted:  ok,
			Threshold: e.cfg.FailCeiling,
			At:        time.Now(),
		})

		if !ok {
			log.Warnf("Training fail")
			log.Warnf("ERROR: %d", dist)
			rejected++
			continue
		}
		log.Infof("Training ok")
		log.Infof("Error val: %d", dist)
		passes = append(passes, dist)
	}

	enrollment := &model.Enrollment{
		Key:           key,
		ExpectedError: expectedError(passes, e.cfg.AcceptanceMargin),
		Passes:        passes,
		Rejected:      rejected,
	}
	log.Infof("Training complete, expected error %d", enrollment.ExpectedError)
	return enrollment, nil
}

func (e *Enroller) verify(ctx context.Context, key model.Sequence) (int, error) {
	cand, err := e.seq.Sequence(ctx)
	if err != nil {
		return 0, err
	}
	return fingerprint.Distance(key, cand, e.cfg.Hysteresis)
}

// expectedError is the integer mean of the accepted passes scaled by
// margin, truncated.
func expectedError(passes []int, margin float64) int {
	if len(passes) == 0 {
		return 0
	}
	sum := 0
	for _, p := range passes {
		sum += p
	}
	mean := sum / len(passes)
	return int(float64(mean) * margin)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
