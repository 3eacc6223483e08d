package model

import "time"

// Symbol is the discretized output of one frame's spectral analysis:
// a frequency-bin index, or NoPeak.
type Symbol int

// NoPeak marks a frame with no bin above the peak floor. It takes part in
// distance arithmetic with its numeric value.
const NoPeak Symbol = -1

// IsPeak reports whether s carries a bin index.
func (s Symbol) IsPeak() bool { return s != NoPeak }

// Sequence is an ordered run of Symbols, one per frame.
type Sequence []Symbol

// Clone returns an independent copy of s.
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// Enrollment is the trained state produced once by the enrollment
// controller and read by the matcher afterwards.
type Enrollment struct {
	Key           Sequence // reference melody fingerprint
	ExpectedError int      // acceptance threshold, a candidate matches below it
	Passes        []int    // distances of the accepted verification passes
	Rejected      int      // verification passes discarded above the fail ceiling
}

// Phase identifies where a scored sequence came from.
type Phase string

const (
	PhaseVerify Phase = "verify"
	PhaseMatch  Phase = "match"
)

// Attempt is one scored candidate sequence.
type Attempt struct {
	Phase     Phase
	Distance  int
	Accepted  bool // verification pass kept, or runtime match
	Threshold int  // fail ceiling while verifying, expected error while matching
	At        time.Time
}

// Outcome is the result of one runtime matching iteration.
type Outcome struct {
	Distance  int
	Threshold int
	Matched   bool
}

// Summary aggregates the attempts of one session.
type Summary struct {
	SessionID       string
	VerifyAccepted  int
	VerifyRejected  int
	Matches         int
	Mismatches      int
	MeanMatchError  float64
	LowestDistance  int
	HighestDistance int
}
