// Package patch locates byte signatures in an executable image and rewrites
// the bytes near them.
//
// A Definition is a named set of SubEdits. Each SubEdit carries an anchor
// pattern that must occur exactly once in the image, and a before/after pair
// that is searched for in a short window following the anchor. Resolve turns
// a Definition into a Resolved patch with absolute offsets; Apply verifies
// every edit against the image and then writes all of them, or none.
//
// Edits never change the image length, so offsets resolved for one patch stay
// valid after another patch has been applied.
package patch

import (
	"bytes"
	"fmt"
)

// DefaultWindow is how many bytes past the anchor offset are searched for a
// sub-edit when SubEdit.Window is zero. It fits the built-in signatures; new
// signatures should set Window to the measured anchor-to-target distance.
const DefaultWindow = 100

// SubEdit is one fixed-length before→after rewrite anchored to a signature.
type SubEdit struct {
	Anchor []byte // Pattern, may contain Wildcard; never written
	Before []byte // Pattern expected at the target, may contain Wildcard
	After  []byte // Literal bytes written over Before
	Window int    // Search length past the anchor; 0 means DefaultWindow
}

// SearchWindow returns the effective search window.
func (e SubEdit) SearchWindow() int {
	if e.Window <= 0 {
		return DefaultWindow
	}
	return e.Window
}

// Validate checks the structural invariants of a single edit.
func (e SubEdit) Validate() error {
	switch {
	case len(e.Before) != len(e.After):
		return fmt.Errorf("%w: before is %d bytes, after is %d bytes", ErrLengthMismatch, len(e.Before), len(e.After))
	case len(e.Anchor) == 0:
		return fmt.Errorf("%w: empty anchor", ErrInvalidEdit)
	case len(e.Before) == 0:
		return fmt.Errorf("%w: empty before", ErrInvalidEdit)
	case e.Window < 0:
		return fmt.Errorf("%w: negative window %d", ErrInvalidEdit, e.Window)
	case e.SearchWindow() < len(e.Before):
		return fmt.Errorf("%w: window %d shorter than before (%d bytes)", ErrInvalidEdit, e.SearchWindow(), len(e.Before))
	case bytes.Equal(e.Before, e.After):
		return fmt.Errorf("%w: before and after are identical", ErrInvalidEdit)
	}
	return nil
}

// Definition is a named capability made of one or more sub-edits.
type Definition struct {
	Name        string
	Description string
	Edits       []SubEdit
}

// Validate checks every edit and wraps the first failure in *Error.
func (d *Definition) Validate() error {
	if len(d.Edits) == 0 {
		return &Error{Patch: d.Name, Edit: -1, Offset: -1, Op: "validate", Err: fmt.Errorf("%w: no edits", ErrInvalidEdit)}
	}
	for i, e := range d.Edits {
		if err := e.Validate(); err != nil {
			return &Error{Patch: d.Name, Edit: i, Offset: -1, Op: "validate", Err: err}
		}
	}
	return nil
}

// ResolvedEdit is a SubEdit pinned to an absolute offset in one image.
type ResolvedEdit struct {
	SubEdit
	AnchorOffset int
	Offset       int
}

// End returns the offset one past the last byte the edit touches.
func (r ResolvedEdit) End() int {
	return r.Offset + len(r.Before)
}

// Resolved is a Definition whose every edit has been located in a specific
// image. It is only meaningful for that image (or a byte-identical copy).
type Resolved struct {
	def   *Definition
	edits []ResolvedEdit
}

// Name returns the definition name.
func (r *Resolved) Name() string {
	return r.def.Name
}

// Edits returns a copy of the resolved edits.
func (r *Resolved) Edits() []ResolvedEdit {
	out := make([]ResolvedEdit, len(r.edits))
	copy(out, r.edits)
	return out
}

// Offsets returns the absolute offset of each edit, in definition order.
func (r *Resolved) Offsets() []int {
	out := make([]int, len(r.edits))
	for i, e := range r.edits {
		out[i] = e.Offset
	}
	return out
}
