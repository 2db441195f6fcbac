package patch

// Verify checks that every edit's before pattern still matches image at its
// resolved offset. It reports the first mismatch as *Error wrapping
// ErrPatchFileDoesNotMatchTarget.
func (r *Resolved) Verify(image []byte) error {
	for i, e := range r.edits {
		if e.Offset < 0 || e.End() > len(image) || !Match(image[e.Offset:e.End()], e.Before) {
			return &Error{Patch: r.def.Name, Edit: i, Offset: e.Offset, Op: "verify", Err: ErrPatchFileDoesNotMatchTarget}
		}
	}
	return nil
}

// Apply writes every edit into image. Nothing is written unless Verify
// passes for all edits, so image is either fully patched or untouched.
//
// image may be a different buffer from the one the patch was resolved
// against, e.g. the same file read again from disk.
func (r *Resolved) Apply(image []byte) error {
	if err := r.Verify(image); err != nil {
		return err
	}
	for _, e := range r.edits {
		copy(image[e.Offset:e.End()], e.After)
	}
	return nil
}
