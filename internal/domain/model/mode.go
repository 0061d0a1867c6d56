// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strings"
)

// Mode is a travel mode alternative. The set is closed and shared by all purposes.
type Mode int

// Modes in enumeration order. Iteration over a choice set always follows this order.
const (
	AutoDriver Mode = iota
	AutoPassenger
	Bicycle
	Bus
	Train
	TramOrMetro
	Walk
	numModes
)

// ModeNone marks a trip whose choice was infeasible or not yet resolved.
const ModeNone Mode = -1

var modeNames = [...]string{
	AutoDriver:    "autoDriver",
	AutoPassenger: "autoPassenger",
	Bicycle:       "bicycle",
	Bus:           "bus",
	Train:         "train",
	TramOrMetro:   "tramOrMetro",
	Walk:          "walk",
}

// Modes returns every mode in enumeration order.
func Modes() []Mode {
	out := make([]Mode, numModes)
	for i := range out {
		out[i] = Mode(i)
	}
	return out
}

// Valid reports whether m is one of the enumerated modes.
func (m Mode) Valid() bool { return m >= 0 && m < numModes }

func (m Mode) String() string {
	if m == ModeNone {
		return "none"
	}
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode resolves a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	for i, name := range modeNames {
		if strings.EqualFold(name, s) {
			return Mode(i), nil
		}
	}
	return ModeNone, fmt.Errorf("%w: mode %q", ErrUnknownValue, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Utilities maps each alternative of a single decision to its systematic utility.
// NaN and infinite values mark structurally unavailable alternatives.
type Utilities map[Mode]float64

// Normalize replaces NaN entries with -Inf in place and returns u.
func (u Utilities) Normalize() Utilities {
	for m, v := range u {
		if math.IsNaN(v) {
			u[m] = math.Inf(-1)
		}
	}
	return u
}

// Available reports whether m carries a finite utility.
func (u Utilities) Available(m Mode) bool {
	v, ok := u[m]
	return ok && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clone returns a copy of u.
func (u Utilities) Clone() Utilities {
	out := make(Utilities, len(u))
	for m, v := range u {
		out[m] = v
	}
	return out
}

// Noise holds the sampled random-utility perturbation per alternative.
type Noise map[Mode]float64
