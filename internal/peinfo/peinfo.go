// Package peinfo maps file offsets in a PE image to sections and
// virtual addresses.
package peinfo

import (
	"bytes"
	"debug/pe"
	"errors"
	"fmt"
)

// ErrNotPE is returned when the data does not parse as a PE image.
var ErrNotPE = errors.New("not a PE image")

// Section describes one section header.
type Section struct {
	Name           string `json:"name"`
	VirtualAddress uint32 `json:"virtual_address"`
	VirtualSize    uint32 `json:"virtual_size"`
	Offset         uint32 `json:"offset"`
	Size           uint32 `json:"size"`
	Executable     bool   `json:"executable"`
}

// Location is a file offset translated into the loaded image.
type Location struct {
	Section string `json:"section"`
	RVA     uint32 `json:"rva"`
	VA      uint64 `json:"va"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s RVA 0x%08X VA 0x%X", l.Section, l.RVA, l.VA)
}

// Image is a parsed PE header set.
type Image struct {
	Machine   uint16
	ImageBase uint64
	Sections  []Section
}

// Parse reads the PE headers in data.
func Parse(data []byte) (*Image, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotPE, err)
	}
	defer f.Close()

	img := &Image{Machine: f.Machine}
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader64:
		img.ImageBase = oh.ImageBase
	case *pe.OptionalHeader32:
		img.ImageBase = uint64(oh.ImageBase)
	}

	img.Sections = make([]Section, 0, len(f.Sections))
	for _, s := range f.Sections {
		img.Sections = append(img.Sections, Section{
			Name:           s.Name,
			VirtualAddress: s.VirtualAddress,
			VirtualSize:    s.VirtualSize,
			Offset:         s.Offset,
			Size:           s.Size,
			Executable:     s.Characteristics&pe.IMAGE_SCN_MEM_EXECUTE != 0,
		})
	}
	return img, nil
}

// Locate translates a file offset. ok is false when the offset lies
// outside every section's raw data, e.g. in the headers.
func (img *Image) Locate(off int) (loc Location, ok bool) {
	if off < 0 {
		return Location{}, false
	}
	for _, s := range img.Sections {
		start := int64(s.Offset)
		if int64(off) < start || int64(off) >= start+int64(s.Size) {
			continue
		}
		rva := s.VirtualAddress + uint32(int64(off)-start)
		return Location{Section: s.Name, RVA: rva, VA: img.ImageBase + uint64(rva)}, true
	}
	return Location{}, false
}

// MachineName returns a short name for the target architecture.
func (img *Image) MachineName() string {
	switch img.Machine {
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "x86-64"
	case pe.IMAGE_FILE_MACHINE_I386:
		return "x86"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return "arm64"
	default:
		return fmt.Sprintf("0x%04X", img.Machine)
	}
}
