package model

import (
	"fmt"
	"strings"
)

// Purpose is a trip purpose. Home-based purposes start or end at home.
type Purpose int

// Purposes in enumeration order.
const (
	HBW Purpose = iota // home-based work
	HBE                // home-based education
	HBS                // home-based shopping
	HBO                // home-based other
	NHBW               // non-home-based work
	NHBO               // non-home-based other
	numPurposes
)

var purposeNames = [...]string{
	HBW:  "HBW",
	HBE:  "HBE",
	HBS:  "HBS",
	HBO:  "HBO",
	NHBW: "NHBW",
	NHBO: "NHBO",
}

// Purposes returns every purpose in enumeration order.
func Purposes() []Purpose {
	out := make([]Purpose, numPurposes)
	for i := range out {
		out[i] = Purpose(i)
	}
	return out
}

// Valid reports whether p is one of the enumerated purposes.
func (p Purpose) Valid() bool { return p >= 0 && p < numPurposes }

func (p Purpose) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Purpose(%d)", int(p))
	}
	return purposeNames[p]
}

// ParsePurpose resolves a purpose name case-insensitively.
func ParsePurpose(s string) (Purpose, error) {
	s = strings.TrimSpace(s)
	for i, name := range purposeNames {
		if strings.EqualFold(name, s) {
			return Purpose(i), nil
		}
	}
	return -1, fmt.Errorf("%w: purpose %q", ErrUnknownValue, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Purpose) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Purpose) UnmarshalText(b []byte) error {
	v, err := ParsePurpose(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
