package peinfo

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peOffset = 0x40

// buildPE assembles a headers-only PE with no optional header and the
// given sections laid out after the section table.
func buildPE(t *testing.T, machine uint16, sections ...pe.SectionHeader32) []byte {
	t.Helper()
	var buf bytes.Buffer

	dos := make([]byte, peOffset)
	copy(dos, "MZ")
	binary.LittleEndian.PutUint32(dos[0x3C:], peOffset)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")

	require.NoError(t, binary.Write(&buf, binary.LittleEndian, pe.FileHeader{
		Machine:          machine,
		NumberOfSections: uint16(len(sections)),
	}))
	for _, s := range sections {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, s))
	}

	end := buf.Len()
	for _, s := range sections {
		end = max(end, int(s.PointerToRawData+s.SizeOfRawData))
	}
	out := make([]byte, end)
	copy(out, buf.Bytes())
	return out
}

func section(name string, va, raw, size, chars uint32) pe.SectionHeader32 {
	var s pe.SectionHeader32
	copy(s.Name[:], name)
	s.VirtualAddress = va
	s.VirtualSize = size
	s.PointerToRawData = raw
	s.SizeOfRawData = size
	s.Characteristics = chars
	return s
}

func TestParse(t *testing.T) {
	data := buildPE(t, pe.IMAGE_FILE_MACHINE_AMD64,
		section(".text", 0x1000, 0x200, 0x400, pe.IMAGE_SCN_MEM_EXECUTE|pe.IMAGE_SCN_CNT_CODE),
		section(".rdata", 0x2000, 0x600, 0x200, pe.IMAGE_SCN_MEM_READ),
	)

	img, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "x86-64", img.MachineName())
	require.Len(t, img.Sections, 2)
	assert.Equal(t, ".text", img.Sections[0].Name)
	assert.True(t, img.Sections[0].Executable)
	assert.False(t, img.Sections[1].Executable)
}

func TestLocate(t *testing.T) {
	data := buildPE(t, pe.IMAGE_FILE_MACHINE_AMD64,
		section(".text", 0x1000, 0x200, 0x400, pe.IMAGE_SCN_MEM_EXECUTE),
		section(".rdata", 0x2000, 0x600, 0x200, pe.IMAGE_SCN_MEM_READ),
	)
	img, err := Parse(data)
	require.NoError(t, err)
	img.ImageBase = 0x140000000

	tests := []struct {
		off     int
		ok      bool
		section string
		rva     uint32
	}{
		{0x200, true, ".text", 0x1000},
		{0x250, true, ".text", 0x1050},
		{0x5FF, true, ".text", 0x13FF},
		{0x600, true, ".rdata", 0x2000},
		{0x7FF, true, ".rdata", 0x21FF},
		{0x800, false, "", 0},
		{0x10, false, "", 0},
		{-1, false, "", 0},
	}
	for _, tt := range tests {
		loc, ok := img.Locate(tt.off)
		if ok != tt.ok {
			t.Errorf("Locate(0x%X) ok = %v, want %v", tt.off, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if loc.Section != tt.section || loc.RVA != tt.rva {
			t.Errorf("Locate(0x%X) = %s/0x%X, want %s/0x%X", tt.off, loc.Section, loc.RVA, tt.section, tt.rva)
		}
		if loc.VA != 0x140000000+uint64(tt.rva) {
			t.Errorf("Locate(0x%X) VA = 0x%X", tt.off, loc.VA)
		}
	}

	loc, _ := img.Locate(0x250)
	assert.Equal(t, ".text RVA 0x00001050 VA 0x140001050", loc.String())
}

func TestParse_NotPE(t *testing.T) {
	_, err := Parse([]byte("definitely not an executable"))
	require.ErrorIs(t, err, ErrNotPE)

	_, err = Parse(nil)
	require.ErrorIs(t, err, ErrNotPE)
}

func TestMachineName(t *testing.T) {
	assert.Equal(t, "x86", (&Image{Machine: pe.IMAGE_FILE_MACHINE_I386}).MachineName())
	assert.Equal(t, "arm64", (&Image{Machine: pe.IMAGE_FILE_MACHINE_ARM64}).MachineName())
	assert.Equal(t, "0x1234", (&Image{Machine: 0x1234}).MachineName())
}
