package patch

import (
	"fmt"
	"strings"
	"time"
)

// TransactionLog records the bytes every applied edit replaced, so a batch
// of patches can be rolled back if a later one fails.
type TransactionLog struct {
	entries []LogEntry
}

// LogEntry records a single edit.
type LogEntry struct {
	Patch     string    // Definition the edit belongs to
	Edit      int       // Index of the edit within the definition
	Offset    uint64    // Offset where the edit was written
	Size      uint64    // Number of bytes modified
	OldData   []byte    // Original bytes (for rollback)
	NewData   []byte    // Bytes written
	Timestamp time.Time // When the entry was recorded
	Applied   bool      // Whether the edit made it into the image
}

// NewTransactionLog creates an empty transaction log.
func NewTransactionLog() *TransactionLog {
	return &TransactionLog{
		entries: make([]LogEntry, 0, 8),
	}
}

// AddEntry records an edit before it is written.
func (tl *TransactionLog) AddEntry(patch string, edit int, offset uint64, oldData, newData []byte) {
	tl.entries = append(tl.entries, LogEntry{
		Patch:     patch,
		Edit:      edit,
		Offset:    offset,
		Size:      uint64(len(oldData)),
		OldData:   append([]byte(nil), oldData...),
		NewData:   append([]byte(nil), newData...),
		Timestamp: time.Now(),
	})
}

// MarkApplied marks every pending entry as written.
func (tl *TransactionLog) MarkApplied() error {
	marked := 0
	for i := range tl.entries {
		if !tl.entries[i].Applied {
			tl.entries[i].Applied = true
			marked++
		}
	}
	if marked == 0 {
		return &TransactionError{
			Operation: "mark_applied",
			Message:   "no pending entries in transaction log",
		}
	}
	return nil
}

// DropPending discards entries that were recorded but never written.
func (tl *TransactionLog) DropPending() {
	kept := tl.entries[:0]
	for _, e := range tl.entries {
		if e.Applied {
			kept = append(kept, e)
		}
	}
	tl.entries = kept
}

// Rollback restores the original bytes of every applied entry, most recent
// first, and returns how many entries were restored.
func (tl *TransactionLog) Rollback(data []byte) (int, error) {
	rolled := 0
	for i := len(tl.entries) - 1; i >= 0; i-- {
		entry := tl.entries[i]
		if !entry.Applied {
			continue
		}

		if entry.Offset+entry.Size > uint64(len(data)) {
			return rolled, &TransactionError{
				Operation: "rollback",
				Message:   fmt.Sprintf("invalid offset/size for entry %d: offset=0x%X size=%d datalen=%d", i, entry.Offset, entry.Size, len(data)),
			}
		}

		copy(data[entry.Offset:entry.Offset+entry.Size], entry.OldData)
		tl.entries[i].Applied = false
		rolled++
	}

	return rolled, nil
}

// AppliedCount returns the number of written entries.
func (tl *TransactionLog) AppliedCount() int {
	count := 0
	for _, entry := range tl.entries {
		if entry.Applied {
			count++
		}
	}
	return count
}

// TotalCount returns the total number of entries in the log.
func (tl *TransactionLog) TotalCount() int {
	return len(tl.entries)
}

// Export renders the log for verbose output.
func (tl *TransactionLog) Export() string {
	if len(tl.entries) == 0 {
		return "Transaction log: empty"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Transaction log: %d entries (%d applied)\n", len(tl.entries), tl.AppliedCount())
	sb.WriteString(strings.Repeat("=", 80))
	sb.WriteString("\n")

	for i, entry := range tl.entries {
		status := "PENDING"
		if entry.Applied {
			status = "APPLIED"
		}

		fmt.Fprintf(&sb, "\n[%d] %s - %s edit %d\n", i+1, status, entry.Patch, entry.Edit)
		fmt.Fprintf(&sb, "  Offset:   0x%08X\n", entry.Offset)
		fmt.Fprintf(&sb, "  Size:     %d bytes\n", entry.Size)
		fmt.Fprintf(&sb, "  Time:     %s\n", entry.Timestamp.Format(time.RFC3339))

		// Long edits are cut at 32 bytes.
		showBytes := min(entry.Size, 32)
		fmt.Fprintf(&sb, "  Before:   % X", entry.OldData[:showBytes])
		if entry.Size > 32 {
			sb.WriteString(" ...")
		}
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "  After:    % X", entry.NewData[:showBytes])
		if entry.Size > 32 {
			sb.WriteString(" ...")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// Entries returns a copy of all log entries.
func (tl *TransactionLog) Entries() []LogEntry {
	entries := make([]LogEntry, len(tl.entries))
	copy(entries, tl.entries)
	return entries
}
