package patch

import (
	"errors"
	"fmt"
)

// Resolution and application outcomes. Callers match these with errors.Is.
var (
	ErrUnavailable                 = errors.New("could not find a patch for this patch type")
	ErrAlreadyApplied              = errors.New("this patch type is already applied to the executable")
	ErrPatchFileDoesNotMatchTarget = errors.New("the file used to calculate the patch and apply the patch are not the same")
	ErrMultiplePossibleLocations   = errors.New("could not find a patch, as there are multiple possible locations")
)

// Structural problems in a definition, reported at catalog construction and
// again by Resolve.
var (
	ErrLengthMismatch = errors.New("before and after differ in length")
	ErrInvalidEdit    = errors.New("invalid sub-edit")
)

// Error reports where in a patch an operation failed.
type Error struct {
	Patch  string // Definition name
	Edit   int    // Sub-edit index, -1 when not tied to one edit
	Offset int    // Image offset, -1 when unknown
	Op     string // "validate", "scan", "locate", "verify"
	Err    error  // One of the sentinel errors above
}

// Error implements the error interface.
func (e *Error) Error() string {
	where := e.Patch
	if e.Edit >= 0 {
		where = fmt.Sprintf("%s edit %d", e.Patch, e.Edit)
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: %s at offset 0x%X: %v", where, e.Op, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", where, e.Op, e.Err)
}

// Unwrap returns the underlying sentinel for errors.Is.
func (e *Error) Unwrap() error {
	return e.Err
}

// EngineError represents a batch-level failure.
type EngineError struct {
	Operation string // "resolve", "apply", "rollback"
	Patch     string
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	op := e.Operation
	if e.Patch != "" {
		op = fmt.Sprintf("%s (%s)", e.Operation, e.Patch)
	}
	if e.Cause != nil {
		return fmt.Sprintf("patch engine %s failed: %s: %v", op, e.Message, e.Cause)
	}
	return fmt.Sprintf("patch engine %s failed: %s", op, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// TransactionError represents an error during transaction log operations.
type TransactionError struct {
	Operation string // "mark_applied", "rollback"
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *TransactionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transaction %s failed: %s: %v", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("transaction %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *TransactionError) Unwrap() error {
	return e.Cause
}
