package patch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Engine applies a batch of definitions to one image. Each definition is
// resolved against the image as it stands after the previous ones, then
// applied. If any definition fails for a reason other than being already
// applied, every patch written so far is rolled back and the image is left
// as it was on entry.
type Engine struct {
	txLog  *TransactionLog
	config EngineConfig
	log    *slog.Logger
}

// EngineConfig contains configuration options for the patch engine.
type EngineConfig struct {
	// DryRun resolves and applies against a private copy of the image
	DryRun bool

	// FailOnApplied treats ErrAlreadyApplied as a batch failure instead of a skip
	FailOnApplied bool

	// Logger receives progress records; nil discards them
	Logger *slog.Logger
}

// EngineResult contains the results of a batch.
type EngineResult struct {
	// Counts
	Applied       int
	Skipped       int
	Failed        int
	RollbackCount int // Edits restored after a failure

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Details
	DryRun         bool
	Details        []PatchDetail
	TransactionLog *TransactionLog
}

// Changed reports whether the batch modified the image.
func (r *EngineResult) Changed() bool {
	return !r.DryRun && r.Applied > 0 && r.Failed == 0
}

// PatchDetail describes the outcome for one definition.
type PatchDetail struct {
	Name     string
	Status   PatchStatus
	Offsets  []int
	Error    error
	Duration time.Duration
}

// PatchStatus indicates the outcome of one definition in a batch.
type PatchStatus int

const (
	PatchStatusPending PatchStatus = iota
	PatchStatusApplied
	PatchStatusSkipped
	PatchStatusFailed
	PatchStatusRolledBack
)

func (s PatchStatus) String() string {
	switch s {
	case PatchStatusPending:
		return "PENDING"
	case PatchStatusApplied:
		return "APPLIED"
	case PatchStatusSkipped:
		return "SKIPPED"
	case PatchStatusFailed:
		return "FAILED"
	case PatchStatusRolledBack:
		return "ROLLEDBACK"
	default:
		return unknownString
	}
}

// NewEngine creates a new patch engine with the given configuration.
func NewEngine(config EngineConfig) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		txLog:  NewTransactionLog(),
		config: config,
		log:    logger,
	}
}

// Apply runs defs against image in order.
//
// Process:
//  1. Resolve the definition against the current image
//  2. Skip it if it is already applied (unless FailOnApplied)
//  3. Record the bytes to be replaced, then apply
//  4. On any failure, roll back every patch applied in this batch
func (e *Engine) Apply(image []byte, defs []*Definition) (*EngineResult, error) {
	result := &EngineResult{
		StartTime: time.Now(),
		DryRun:    e.config.DryRun,
		Details:   make([]PatchDetail, 0, len(defs)),
	}

	if e.config.DryRun {
		image = append([]byte(nil), image...)
	}

	// Each batch gets its own log so earlier results keep their entries.
	e.txLog = NewTransactionLog()
	result.TransactionLog = e.txLog

	for _, def := range defs {
		detail := e.processPatch(image, def)
		result.Details = append(result.Details, detail)

		switch detail.Status {
		case PatchStatusApplied:
			result.Applied++
			continue
		case PatchStatusSkipped:
			result.Skipped++
			continue
		}

		result.Failed++
		rolled, rbErr := e.txLog.Rollback(image)
		result.RollbackCount = rolled
		if rolled > 0 {
			e.log.Warn("rolled back batch", "patch", def.Name, "edits", rolled)
		}
		e.finish(result)
		if rbErr != nil {
			return result, &EngineError{
				Operation: "rollback",
				Patch:     def.Name,
				Message:   fmt.Sprintf("patch failed and rollback stopped after %d edits", rolled),
				Cause:     errors.Join(detail.Error, rbErr),
			}
		}
		for i := range result.Details {
			if result.Details[i].Status == PatchStatusApplied {
				result.Details[i].Status = PatchStatusRolledBack
			}
		}
		result.Applied = 0
		return result, &EngineError{
			Operation: "apply",
			Patch:     def.Name,
			Message:   fmt.Sprintf("patch %d of %d failed, batch rolled back", len(result.Details), len(defs)),
			Cause:     detail.Error,
		}
	}

	e.finish(result)
	return result, nil
}

func (e *Engine) finish(result *EngineResult) {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
}

// processPatch resolves and applies a single definition.
func (e *Engine) processPatch(image []byte, def *Definition) PatchDetail {
	startTime := time.Now()
	detail := PatchDetail{Name: def.Name, Status: PatchStatusPending}

	r, err := Resolve(def, image)
	if err != nil {
		detail.Error = err
		detail.Duration = time.Since(startTime)
		if errors.Is(err, ErrAlreadyApplied) && !e.config.FailOnApplied {
			e.log.Info("skipping patch, already applied", "patch", def.Name)
			detail.Status = PatchStatusSkipped
			return detail
		}
		e.log.Warn("resolve failed", "patch", def.Name, "err", err)
		detail.Status = PatchStatusFailed
		return detail
	}
	detail.Offsets = r.Offsets()
	e.log.Debug("resolved patch", "patch", def.Name, "offsets", detail.Offsets)

	for i, edit := range r.edits {
		e.txLog.AddEntry(def.Name, i, uint64(edit.Offset), image[edit.Offset:edit.End()], edit.After)
	}

	if err := r.Apply(image); err != nil {
		e.txLog.DropPending()
		e.log.Warn("apply failed", "patch", def.Name, "err", err)
		detail.Status = PatchStatusFailed
		detail.Error = err
		detail.Duration = time.Since(startTime)
		return detail
	}

	if err := e.txLog.MarkApplied(); err != nil {
		detail.Status = PatchStatusFailed
		detail.Error = err
		detail.Duration = time.Since(startTime)
		return detail
	}

	e.log.Debug("applied patch", "patch", def.Name, "edits", len(r.edits))
	detail.Status = PatchStatusApplied
	detail.Duration = time.Since(startTime)
	return detail
}

// Survey probes every definition against image without modifying it.
func (e *Engine) Survey(image []byte, defs []*Definition) []Report {
	reports := make([]Report, 0, len(defs))
	for _, def := range defs {
		rep := Probe(def, image)
		e.log.Debug("probed patch", "patch", def.Name, "status", rep.Status)
		reports = append(reports, rep)
	}
	return reports
}

// ValidateNoSideEffects checks that before and after differ only inside
// regions recorded in the last batch's transaction log.
func (e *Engine) ValidateNoSideEffects(before, after []byte) error {
	if len(before) != len(after) {
		return &EngineError{
			Operation: "validate",
			Message:   fmt.Sprintf("image size changed from %d to %d bytes", len(before), len(after)),
		}
	}

	for i := range before {
		if before[i] == after[i] {
			continue
		}
		inEdit := false
		for _, entry := range e.txLog.entries {
			if uint64(i) >= entry.Offset && uint64(i) < entry.Offset+entry.Size {
				inEdit = true
				break
			}
		}
		if !inEdit {
			return &EngineError{
				Operation: "validate",
				Message:   fmt.Sprintf("byte at offset 0x%X was modified but not part of any edit", i),
			}
		}
	}

	return nil
}

// ExportLog returns a human-readable export of the last batch's transaction log.
func (e *Engine) ExportLog() string {
	return e.txLog.Export()
}
