// Package sig converts between byte signatures and their text form.
//
// Signatures are written as whitespace-separated hex bytes, with "??", "?"
// or "*" standing for a wildcard position:
//
//	48 8B 05 ?? ?? ?? ?? 80 B8 ?? 24 00 00 00 74 0C
package sig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/sigpatch/internal/patch"
)

var (
	ErrEmpty           = errors.New("empty signature")
	ErrWildcardLiteral = errors.New("literal 2A collides with the wildcard marker")
	ErrWildcardInAfter = errors.New("wildcards are not allowed in replacement bytes")
)

// Pattern is a byte signature that may contain patch.Wildcard positions.
type Pattern []byte

// Literal is a byte sequence without wildcards.
type Literal []byte

// Parse reads a signature that may contain wildcards.
func Parse(s string) (Pattern, error) {
	b, err := parse(s, true)
	if err != nil {
		return nil, err
	}
	return Pattern(b), nil
}

// ParseLiteral reads a signature that must not contain wildcards. The 2A
// byte is allowed since a literal is written, never matched.
func ParseLiteral(s string) (Literal, error) {
	b, err := parse(s, false)
	if err != nil {
		return nil, err
	}
	return Literal(b), nil
}

func parse(s string, wildcards bool) ([]byte, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, ErrEmpty
	}

	out := make([]byte, 0, len(fields))
	for i, tok := range fields {
		switch tok {
		case "??", "?", "*":
			if !wildcards {
				return nil, fmt.Errorf("token %d: %w", i, ErrWildcardInAfter)
			}
			out = append(out, patch.Wildcard)
			continue
		}

		tok = strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
		if len(tok) != 2 {
			return nil, fmt.Errorf("token %d: bad byte %q", i, fields[i])
		}
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("token %d: bad hex %q: %w", i, fields[i], err)
		}
		if wildcards && byte(v) == patch.Wildcard {
			return nil, fmt.Errorf("token %d: %w", i, ErrWildcardLiteral)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// Format renders b as space-separated hex. With wildcards set, Wildcard
// positions are printed as "??".
func Format(b []byte, wildcards bool) string {
	parts := make([]string, len(b))
	for i, v := range b {
		if wildcards && v == patch.Wildcard {
			parts[i] = "??"
		} else {
			parts[i] = fmt.Sprintf("%02X", v)
		}
	}
	return strings.Join(parts, " ")
}

func (p Pattern) String() string {
	return Format(p, true)
}

func (l Literal) String() string {
	return Format(l, false)
}

// UnmarshalYAML decodes a pattern from a scalar string.
func (p *Pattern) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	v, err := Parse(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*p = v
	return nil
}

// MarshalYAML encodes the pattern in its text form.
func (p Pattern) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

// UnmarshalYAML decodes a literal from a scalar string.
func (l *Literal) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	v, err := ParseLiteral(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*l = v
	return nil
}

// MarshalYAML encodes the literal in its text form.
func (l Literal) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}
