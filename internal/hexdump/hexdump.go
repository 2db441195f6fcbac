// Package hexdump renders byte ranges as offset/hex/text rows.
//
// The text column decodes bytes as Windows-1252, the code page most
// strings in Windows executables are written in.
package hexdump

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

// DefaultWidth is the number of bytes per row.
const DefaultWidth = 16

// Range is a half-open byte range [Start, End) in image offsets.
type Range struct {
	Start, End int
}

// Contains reports whether off lies in r.
func (r Range) Contains(off int) bool {
	return off >= r.Start && off < r.End
}

// Options controls rendering.
type Options struct {
	Width int
	// Marks are drawn with Mark, when set, in both columns.
	Marks []Range
	Mark  func(s string) string
}

// Dump writes data as rows to w. base is the image offset of data[0].
func Dump(w io.Writer, data []byte, base int, opts Options) error {
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}

	var sb strings.Builder
	for row := 0; row < len(data); row += width {
		sb.Reset()
		end := min(row+width, len(data))
		fmt.Fprintf(&sb, "%08X  ", base+row)

		for i := row; i < row+width; i++ {
			if i == row+width/2 {
				sb.WriteByte(' ')
			}
			if i >= end {
				sb.WriteString("   ")
				continue
			}
			sb.WriteString(opts.mark(base+i, fmt.Sprintf("%02X", data[i])))
			sb.WriteByte(' ')
		}

		sb.WriteString(" |")
		for i := row; i < end; i++ {
			sb.WriteString(opts.mark(base+i, string(printable(data[i]))))
		}
		sb.WriteString("|\n")

		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// String is Dump into a string.
func String(data []byte, base int, opts Options) string {
	var sb strings.Builder
	_ = Dump(&sb, data, base, opts)
	return sb.String()
}

// Around returns the row-aligned range that covers [off, off+n) plus
// context bytes on either side, clipped to size.
func Around(off, n, context, size, width int) Range {
	if width <= 0 {
		width = DefaultWidth
	}
	context = max(context, 0)
	start := max(off-context, 0)
	start -= start % width
	end := size
	if context < size-off-n {
		end = off + n + context
	}
	if rem := end % width; rem != 0 {
		end = min(end+width-rem, size)
	}
	return Range{Start: start, End: end}
}

func (o Options) mark(off int, s string) string {
	if o.Mark == nil {
		return s
	}
	for _, r := range o.Marks {
		if r.Contains(off) {
			return o.Mark(s)
		}
	}
	return s
}

func printable(b byte) rune {
	r := charmap.Windows1252.DecodeByte(b)
	if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
		return '.'
	}
	return r
}
