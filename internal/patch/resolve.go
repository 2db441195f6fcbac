package patch

// Resolve locates every sub-edit of def in image.
//
// For each edit the anchor must occur exactly once; the edit target is then
// searched for in the window following it. The first failing edit aborts the
// whole resolution and its error is returned as *Error wrapping one of
// ErrUnavailable, ErrMultiplePossibleLocations, ErrAlreadyApplied,
// ErrLengthMismatch or ErrInvalidEdit. The image is never modified.
func Resolve(def *Definition, image []byte) (*Resolved, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	edits := make([]ResolvedEdit, 0, len(def.Edits))
	for i, e := range def.Edits {
		anchor, err := FindUnique(image, e.Anchor)
		if err != nil {
			return nil, &Error{Patch: def.Name, Edit: i, Offset: -1, Op: "scan", Err: err}
		}

		off, err := Locate(image, anchor, e.SearchWindow(), e.Before, e.After)
		if err != nil {
			return nil, &Error{Patch: def.Name, Edit: i, Offset: off, Op: "locate", Err: err}
		}

		edits = append(edits, ResolvedEdit{SubEdit: e, AnchorOffset: anchor, Offset: off})
	}

	return &Resolved{def: def, edits: edits}, nil
}
