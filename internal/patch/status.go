package patch

import (
	"errors"
	"fmt"
)

// Status classifies whether a definition can be applied to an image.
type Status int

const (
	StatusAvailable      Status = iota // Resolves cleanly, ready to apply
	StatusAlreadyApplied               // At least one edit is already in its patched state
	StatusUnavailable                  // Anchor or target not found (wrong image version)
	StatusAmbiguous                    // Anchor occurs more than once
	StatusInvalid                      // Malformed definition
)

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "AVAILABLE"
	case StatusAlreadyApplied:
		return "APPLIED"
	case StatusUnavailable:
		return "UNAVAILABLE"
	case StatusAmbiguous:
		return "AMBIGUOUS"
	case StatusInvalid:
		return "INVALID"
	default:
		return unknownString
	}
}

// MarshalText renders the status name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a name produced by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for c := StatusAvailable; c <= StatusInvalid; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

const unknownString = "UNKNOWN"

// StatusOf maps a Resolve error to a Status.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusAvailable
	case errors.Is(err, ErrAlreadyApplied):
		return StatusAlreadyApplied
	case errors.Is(err, ErrMultiplePossibleLocations):
		return StatusAmbiguous
	case errors.Is(err, ErrLengthMismatch), errors.Is(err, ErrInvalidEdit):
		return StatusInvalid
	default:
		return StatusUnavailable
	}
}

// Report is the outcome of probing one definition against an image.
type Report struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	Offsets     []int     `json:"offsets,omitempty"`
	Error       string    `json:"error,omitempty"`
	Resolved    *Resolved `json:"-"`
}

// Probe resolves def against image without applying it.
func Probe(def *Definition, image []byte) Report {
	rep := Report{Name: def.Name, Description: def.Description}
	r, err := Resolve(def, image)
	rep.Status = StatusOf(err)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	rep.Resolved = r
	rep.Offsets = r.Offsets()
	return rep
}
