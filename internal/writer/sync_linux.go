//go:build linux || freebsd

package writer

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncFile flushes file data; metadata the rename does not need is skipped.
func syncFile(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
