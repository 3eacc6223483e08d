package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/himanishpuri/WhistleKey/internal/model"
)

var ErrOnsetTimeout = errors.New("no melody onset detected")

// Sequencer turns a stream of per-frame Symbols into fixed-length sequences
// that start right after the melody begins.
//
// The frame that reveals the onset is consumed and dropped; the first
// element of a sequence is the frame after it.
type Sequencer struct {
	extractor Extractor
	length    int
	maxOnset  int // 0 waits forever
	yield     func()
}

type SequencerOption func(*Sequencer)

// WithMaxOnsetFrames bounds how many silent frames AwaitOnset tolerates.
func WithMaxOnsetFrames(n int) SequencerOption {
	return func(s *Sequencer) { s.maxOnset = n }
}

// WithSequencerYield replaces runtime.Gosched between frames.
func WithSequencerYield(fn func()) SequencerOption {
	return func(s *Sequencer) { s.yield = fn }
}

func NewSequencer(extractor Extractor, length int, opts ...SequencerOption) (*Sequencer, error) {
	if extractor == nil {
		return nil, fmt.Errorf("%w: nil extractor", ErrInvalidConfig)
	}
	if length <= 0 {
		return nil, fmt.Errorf("%w: sequence length %d", ErrInvalidConfig, length)
	}
	s := &Sequencer{
		extractor: extractor,
		length:    length,
		yield:     runtime.Gosched,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Sequencer) Len() int { return s.length }

// AwaitOnset blocks until a frame carries a peak.
func (s *Sequencer) AwaitOnset(ctx context.Context) error {
	for silent := 0; ; silent++ {
		if s.maxOnset > 0 && silent >= s.maxOnset {
			return fmt.Errorf("%w after %d frames", ErrOnsetTimeout, silent)
		}
		sym, err := s.extractor.Extract(ctx)
		if err != nil {
			return err
		}
		if sym.IsPeak() {
			return nil
		}
		if err := s.pause(ctx); err != nil {
			return err
		}
	}
}

// Capture records exactly Len frames, NoPeak included, without gating.
func (s *Sequencer) Capture(ctx context.Context) (model.Sequence, error) {
	seq := make(model.Sequence, 0, s.length)
	for len(seq) < s.length {
		sym, err := s.extractor.Extract(ctx)
		if err != nil {
			return nil, fmt.Errorf("capturing frame %d/%d: %w", len(seq)+1, s.length, err)
		}
		seq = append(seq, sym)
		if err := s.pause(ctx); err != nil {
			return nil, err
		}
	}
	return seq, nil
}

// Sequence waits for onset and then captures a full sequence.
func (s *Sequencer) Sequence(ctx context.Context) (model.Sequence, error) {
	if err := s.AwaitOnset(ctx); err != nil {
		return nil, err
	}
	return s.Capture(ctx)
}

func (s *Sequencer) pause(ctx context.Context) error {
	s.yield()
	return ctx.Err()
}
