package service

import (
	"context"
	"fmt"
	"time"

	"github.com/himanishpuri/WhistleKey/internal/fingerprint"
	"github.com/himanishpuri/WhistleKey/internal/model"
)

// Matcher scores fresh captures against a trained key. It holds its own
// copy of the key; iterations share no state.
type Matcher struct {
	key           model.Sequence
	expectedError int
	seq           *fingerprint.Sequencer
	cfg           *Config
}

func newMatcher(e *model.Enrollment, seq *fingerprint.Sequencer, cfg *Config) (*Matcher, error) {
	if e == nil {
		return nil, ErrNotTrained
	}
	if len(e.Key) != seq.Len() {
		return nil, fmt.Errorf("%w: key has %d frames, sequencer captures %d",
			fingerprint.ErrLengthMismatch, len(e.Key), seq.Len())
	}
	return &Matcher{
		key:           e.Key.Clone(),
		expectedError: e.ExpectedError,
		seq:           seq,
		cfg:           cfg,
	}, nil
}

// Attempt captures one candidate after onset and compares its distance to
// the expected error. Only a strictly smaller distance matches.
func (m *Matcher) Attempt(ctx context.Context) (model.Outcome, error) {
	log := m.cfg.Logger
	log.Infof("NOW LISTENING")

	cand, err := m.seq.Sequence(ctx)
	if err != nil {
		return model.Outcome{}, err
	}
	dist, err := fingerprint.Distance(m.key, cand, m.cfg.Hysteresis)
	if err != nil {
		return model.Outcome{}, err
	}

	out := model.Outcome{
		Distance:  dist,
		Threshold: m.expectedError,
		Matched:   dist < m.expectedError,
	}
	record(m.cfg, model.Attempt{
		Phase:     model.PhaseMatch,
		Distance:  dist,
		Accepted:  out.Matched,
		Threshold: m.expectedError,
		At:        time.Now(),
	})

	log.Debugf("Candidate distance %d, expected error %d", dist, m.expectedError)
	if out.Matched {
		log.Infof("CORRECT AUDIO")
		log.Infof("LISTENING AGAIN")
	} else {
		log.Warnf("WRONG AUDIO")
	}
	return out, nil
}

// Run repeats Attempt until the context ends or capture fails, handing
// every outcome to fn.
func (m *Matcher) Run(ctx context.Context, fn func(model.Outcome)) error {
	for {
		out, err := m.Attempt(ctx)
		if err != nil {
			return err
		}
		if fn != nil {
			fn(out)
		}
	}
}
