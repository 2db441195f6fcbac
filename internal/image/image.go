// Package image loads executable images for inspection and patching.
//
// Read-only commands map the file into memory; patching works on a private
// copy so that nothing reaches disk until the caller writes it back.
package image

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrNotRegular is returned for directories, devices and other non-files.
var ErrNotRegular = errors.New("not a regular file")

// File is a mutable in-memory copy of an image on disk.
type File struct {
	Path string
	Data []byte
	Mode fs.FileMode
}

// Load reads the image at path into memory.
func Load(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &File{Path: path, Data: data, Mode: info.Mode().Perm()}, nil
}

// View runs fn over a read-only mapping of path. The slice must not be
// retained after fn returns.
func View(path string, fn func(data []byte) error) (err error) {
	data, release, err := Map(path)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := release(); relErr != nil && err == nil {
			err = fmt.Errorf("unmap %s: %w", path, relErr)
		}
	}()
	return fn(data)
}
