// Package probability implements the validated [0,1] scalar used to gate
// every impairment module.
package probability

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"

	"netsim/pkg/neterr"
)

// Probability is a real number constrained to [0.0, 1.0].
type Probability struct {
	value float64
}

// Zero is the default probability: never fires.
var Zero = Probability{}

// New validates v and returns a Probability, or ErrInvalidProbability if v
// is outside [0,1].
func New(v float64) (Probability, error) {
	if v < 0.0 || v > 1.0 {
		return Probability{}, fmt.Errorf("%w: %v is outside [0,1]", neterr.ErrInvalidProbability, v)
	}
	return Probability{value: v}, nil
}

// MustNew is New but panics on an invalid value; used for compile-time-known
// constants in tests and builders.
func MustNew(v float64) Probability {
	p, err := New(v)
	if err != nil {
		panic(err)
	}
	return p
}

// FromPercent maps pct/100 to a Probability rather than failing; inputs
// outside [0,100] give Zero — this is the builder's "out-of-range inputs
// default to 0.0 silently" rule.
func FromPercent(pct float64) Probability {
	v := pct / 100.0
	if v < 0.0 || v > 1.0 {
		return Zero
	}
	return Probability{value: v}
}

// Parse decodes a decimal string, rejecting unparsable input and values
// outside [0,1] with distinct error kinds.
func Parse(s string) (Probability, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Probability{}, fmt.Errorf("%w: cannot parse %q as a float: %v", neterr.ErrInvalidProbability, s, err)
	}
	return New(v)
}

// Value returns the underlying float64 in [0,1].
func (p Probability) Value() float64 { return p.value }

// String renders the probability as a decimal string.
func (p Probability) String() string { return strconv.FormatFloat(p.value, 'f', -1, 64) }

// Sample draws a uniform value in [0,1) and reports whether it is strictly
// less than p — so a probability of 0 never fires and 1 always fires.
func (p Probability) Sample(rng *rand.Rand) bool {
	var u float64
	if rng != nil {
		u = rng.Float64()
	} else {
		u = rand.Float64()
	}
	return u < p.value
}

// IsZero reports whether this is the default (never-fires) probability.
func (p Probability) IsZero() bool { return p.value == 0 }

// MarshalJSON encodes the probability as a bare JSON number, since value is
// unexported and would otherwise marshal as an empty object over the
// command surface's JSON-RPC wire.
func (p Probability) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.value)
}

// UnmarshalJSON decodes a bare JSON number, validating it lands in [0,1].
func (p *Probability) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n, err := New(v)
	if err != nil {
		return err
	}
	*p = n
	return nil
}
