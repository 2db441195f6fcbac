// Package writer persists patched images.
//
// Every file write goes through a temp file in the target directory that is
// flushed and then renamed over the destination, so a crash leaves either
// the old image or the new one on disk.
package writer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Sink receives a finished image.
type Sink interface {
	WriteImage(data []byte) error
}

// FileWriter writes images to a filesystem path atomically.
type FileWriter struct {
	Path string
	// Perm is applied to the written file. Zero keeps the mode of an
	// existing target, or 0o644 for a new one.
	Perm fs.FileMode
}

// WriteImage writes data to w.Path via temp file and rename.
func (w *FileWriter) WriteImage(data []byte) error {
	perm := w.Perm
	if perm == 0 {
		perm = 0o644
		if info, err := os.Stat(w.Path); err == nil {
			perm = info.Mode().Perm()
		}
	}
	return WriteAtomic(w.Path, data, perm)
}

// WriteAtomic writes data to path with the given permissions.
//
// Steps:
//  1. Create a temp file next to the target (same filesystem)
//  2. Write and flush it
//  3. Set permissions, then rename over the target
//  4. Flush the parent directory so the rename survives a crash
//
// On failure the temp file is removed and the target is left unchanged.
func WriteAtomic(path string, data []byte, perm fs.FileMode) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	dir := filepath.Dir(absPath)

	tmpFile, err := os.CreateTemp(dir, ".sigpatch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	cleanup := func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}

	if _, writeErr := tmpFile.Write(data); writeErr != nil {
		cleanup()
		return fmt.Errorf("writing temp file: %w", writeErr)
	}
	if syncErr := syncFile(tmpFile); syncErr != nil {
		cleanup()
		return fmt.Errorf("syncing temp file: %w", syncErr)
	}
	if chmodErr := tmpFile.Chmod(perm); chmodErr != nil {
		cleanup()
		return fmt.Errorf("setting permissions: %w", chmodErr)
	}
	// Windows refuses to rename an open file.
	if closeErr := tmpFile.Close(); closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if renameErr := os.Rename(tmpPath, absPath); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", renameErr)
	}

	// The data is already in place; a failed directory flush is not fatal.
	_ = syncDir(dir)
	return nil
}

// CreateBackup copies path to path+suffix before it is overwritten. When
// that name is taken, a timestamp is appended so an older backup is never
// replaced. It returns the backup path.
func CreateBackup(path, suffix string) (string, error) {
	if suffix == "" {
		return "", errors.New("backup suffix is empty")
	}
	stat, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("source file not found: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading source file: %w", err)
	}

	backupPath := path + suffix
	if _, statErr := os.Stat(backupPath); statErr == nil {
		backupPath = fmt.Sprintf("%s.%s", backupPath, time.Now().Format("20060102-150405"))
	}

	if writeErr := WriteAtomic(backupPath, data, stat.Mode().Perm()); writeErr != nil {
		return "", fmt.Errorf("writing backup: %w", writeErr)
	}
	if verifyErr := verifyBackup(backupPath, stat.Size()); verifyErr != nil {
		_ = os.Remove(backupPath)
		return "", fmt.Errorf("backup verification failed: %w", verifyErr)
	}
	return backupPath, nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("opening directory: %w", err)
	}
	defer d.Close()

	if syncErr := d.Sync(); syncErr != nil {
		return fmt.Errorf("syncing directory: %w", syncErr)
	}
	return nil
}

func verifyBackup(path string, expectedSize int64) error {
	stat, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}
	if stat.Size() != expectedSize {
		return fmt.Errorf("backup size mismatch: expected %d, got %d", expectedSize, stat.Size())
	}
	return nil
}
