// Package game holds the finger-guessing rules: the finger enumeration,
// finger sets, and the scoring of a guess against a challenge's secret.
package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
)

// FingerName identifies one finger of a hand.
type FingerName string

const (
	Thumb  FingerName = "thumb"
	Index  FingerName = "index"
	Middle FingerName = "middle"
	Ring   FingerName = "ring"
	Pinky  FingerName = "pinky"
)

// MinFingerCount and MaxFingerCount bound a challenge's secret count.
const (
	MinFingerCount = 1
	MaxFingerCount = 5
)

// ErrUnknownFinger is returned when a name is not one of the five fingers.
var ErrUnknownFinger = errors.New("unknown finger name")

// AllFingers lists the enumeration in canonical order.
var AllFingers = [...]FingerName{Thumb, Index, Middle, Ring, Pinky}

func (f FingerName) bit() (FingerSet, bool) {
	for i, name := range AllFingers {
		if name == f {
			return FingerSet(1 << i), true
		}
	}
	return 0, false
}

// FingerSet is a set of fingers stored as a 5-bit mask.
// Two sets are equal exactly when their masks are equal.
type FingerSet uint8

// NewFingerSet builds a set from finger names. Repeated names collapse
// into one member.
func NewFingerSet(fingers ...FingerName) (FingerSet, error) {
	var set FingerSet
	for _, f := range fingers {
		b, ok := f.bit()
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownFinger, string(f))
		}
		set |= b
	}
	return set, nil
}

// ParseFingerSet builds a set from raw strings.
func ParseFingerSet(names []string) (FingerSet, error) {
	fingers := make([]FingerName, len(names))
	for i, n := range names {
		fingers[i] = FingerName(n)
	}
	return NewFingerSet(fingers...)
}

// Has reports whether f is a member of s.
func (s FingerSet) Has(f FingerName) bool {
	b, ok := f.bit()
	return ok && s&b != 0
}

// Len returns the number of members.
func (s FingerSet) Len() int {
	return bits.OnesCount8(uint8(s & fullHand))
}

// Equal reports structural equality.
func (s FingerSet) Equal(other FingerSet) bool {
	return s&fullHand == other&fullHand
}

// Fingers returns the members in canonical order.
func (s FingerSet) Fingers() []FingerName {
	out := make([]FingerName, 0, s.Len())
	for i, name := range AllFingers {
		if s&(1<<i) != 0 {
			out = append(out, name)
		}
	}
	return out
}

// Strings returns the members as plain strings, for storage.
func (s FingerSet) Strings() []string {
	fingers := s.Fingers()
	out := make([]string, len(fingers))
	for i, f := range fingers {
		out[i] = string(f)
	}
	return out
}

func (s FingerSet) String() string {
	return fmt.Sprint(s.Strings())
}

// MarshalJSON encodes the set as an array of names.
func (s FingerSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes an array of names. Unknown names are an error.
func (s *FingerSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	set, err := ParseFingerSet(names)
	if err != nil {
		return err
	}
	*s = set
	return nil
}

const fullHand FingerSet = 1<<len(AllFingers) - 1
