package service

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/himanishpuri/WhistleKey/internal/model"
	"github.com/himanishpuri/WhistleKey/pkg/logger"
)

// onsetSymbol is the frame that reveals a performance; the sequencer drops it.
const onsetSymbol model.Symbol = 40

// performance is what the extractor emits for one rendition of a melody:
// a short silence, the onset frame, then the melody itself.
func performance(melody model.Sequence) []model.Symbol {
	out := []model.Symbol{model.NoPeak, model.NoPeak, onsetSymbol}
	return append(out, melody...)
}

func constant(sym model.Symbol, n int) model.Sequence {
	s := make(model.Sequence, n)
	for i := range s {
		s[i] = sym
	}
	return s
}

// withDeviations returns base with the first n positions moved by offset bins.
func withDeviations(base model.Sequence, n int, offset model.Symbol) model.Sequence {
	s := base.Clone()
	for i := 0; i < n && i < len(s); i++ {
		s[i] += offset
	}
	return s
}

// streamExtractor serves frames from a script; once drained it either
// repeats the tail performance forever or reports io.EOF.
type streamExtractor struct {
	frames []model.Symbol
	pos    int
	tail   []model.Symbol
	calls  int
}

func newStream(performances ...model.Sequence) *streamExtractor {
	s := &streamExtractor{}
	for _, p := range performances {
		s.frames = append(s.frames, performance(p)...)
	}
	return s
}

// thenForever repeats melody as a new performance once the script runs out.
func (s *streamExtractor) thenForever(melody model.Sequence) *streamExtractor {
	s.tail = performance(melody)
	return s
}

func (s *streamExtractor) Extract(ctx context.Context) (model.Symbol, error) {
	if err := ctx.Err(); err != nil {
		return model.NoPeak, err
	}
	s.calls++
	if s.pos < len(s.frames) {
		sym := s.frames[s.pos]
		s.pos++
		return sym, nil
	}
	if len(s.tail) == 0 {
		return model.NoPeak, io.EOF
	}
	sym := s.tail[(s.pos-len(s.frames))%len(s.tail)]
	s.pos++
	return sym, nil
}

// memoryRecorder keeps attempts in a slice and can react to each one.
type memoryRecorder struct {
	attempts []model.Attempt
	onRecord func(model.Attempt)
}

func (r *memoryRecorder) RecordAttempt(a model.Attempt) error {
	r.attempts = append(r.attempts, a)
	if r.onRecord != nil {
		r.onRecord(a)
	}
	return nil
}

func (r *memoryRecorder) count(phase model.Phase, accepted bool) int {
	n := 0
	for _, a := range r.attempts {
		if a.Phase == phase && a.Accepted == accepted {
			n++
		}
	}
	return n
}

func newTestLogger(w io.Writer) *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Output = w
	cfg.Colorize = false
	cfg.ShowTime = false
	cfg.Level = logger.DEBUG
	return logger.New(cfg)
}

func newTestService(t *testing.T, ex *streamExtractor, rec *memoryRecorder, opts ...Option) (*WhistleService, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	base := []Option{
		WithVerifyDelay(0),
		WithLogger(newTestLogger(&buf)),
		WithMetrics(false),
	}
	if rec != nil {
		base = append(base, WithRecorder(rec))
	}

	svc, err := NewWhistleService(ex, append(base, opts...)...)
	if err != nil {
		t.Fatalf("Failed to create test service: %v", err)
	}
	return svc, &buf
}
