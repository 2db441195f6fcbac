//go:build darwin

package writer

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncFile asks the drive to flush its cache; plain fsync on macOS does not.
func syncFile(f *os.File) error {
	_, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0)
	return err
}
