package fingerprint

import (
	"errors"
	"fmt"

	"github.com/himanishpuri/WhistleKey/internal/model"
)

// DefaultHysteresis is how many bins a symbol may drift and still count
// as a hit.
const DefaultHysteresis = 5

var ErrLengthMismatch = errors.New("sequences differ in length")

// Distance is an L1 distance in which positional deviations of at most
// hysteresis bins are free. NoPeak takes part with its numeric value, so a
// silent frame against a bin b costs b+1.
func Distance(key, candidate model.Sequence, hysteresis int) (int, error) {
	if len(key) != len(candidate) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(key), len(candidate))
	}
	total := 0
	for i := range key {
		d := int(key[i]) - int(candidate[i])
		if d < 0 {
			d = -d
		}
		if d > hysteresis {
			total += d
		}
	}
	return total, nil
}
