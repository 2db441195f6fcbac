// Package catalog holds named patch definitions.
//
// A catalog is a YAML document listing patches and their sub-edits. The
// built-in catalog is embedded in the binary; others can be loaded from disk.
// Every definition is validated when the catalog is built, so a malformed
// entry is reported as an error before any image is touched.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/sigpatch/internal/patch"
	"github.com/joshuapare/sigpatch/internal/sig"
)

// Kind names a built-in capability.
type Kind string

const (
	// ModdedIronman enables Ironman with any checksum.
	ModdedIronman Kind = "modded-ironman"
	// EnableIronmanLoading enables loading saves in Ironman.
	EnableIronmanLoading Kind = "enable-ironman-loading"
	// MidgameIronman converts normal saves into Ironman saves.
	MidgameIronman Kind = "midgame-ironman"
)

// Kinds returns the built-in capabilities in catalog order.
func Kinds() []Kind {
	return []Kind{ModdedIronman, EnableIronmanLoading, MidgameIronman}
}

var (
	ErrUnknownPatch  = errors.New("unknown patch")
	ErrDuplicateName = errors.New("duplicate patch name")
	ErrMissingName   = errors.New("patch has no name")
	ErrMissingKind   = errors.New("built-in catalog lacks a capability")
)

//go:embed builtin.yaml
var builtinYAML []byte

// Catalog is an ordered, validated set of definitions.
type Catalog struct {
	defs   []*patch.Definition
	byName map[string]*patch.Definition
}

type document struct {
	Patches []entry `yaml:"patches"`
}

type entry struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Edits       []editEntry `yaml:"edits"`
}

type editEntry struct {
	Anchor sig.Pattern `yaml:"anchor"`
	Before sig.Pattern `yaml:"before"`
	After  sig.Literal `yaml:"after"`
	Window int         `yaml:"window,omitempty"`
}

// Parse decodes and validates a catalog document. Unknown fields are errors.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	defs := make([]*patch.Definition, 0, len(doc.Patches))
	for i, e := range doc.Patches {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("patch %d: %w", i, ErrMissingName)
		}
		def := &patch.Definition{
			Name:        e.Name,
			Description: strings.TrimSpace(e.Description),
			Edits:       make([]patch.SubEdit, len(e.Edits)),
		}
		for j, ed := range e.Edits {
			def.Edits[j] = patch.SubEdit{
				Anchor: []byte(ed.Anchor),
				Before: []byte(ed.Before),
				After:  []byte(ed.After),
				Window: ed.Window,
			}
		}
		defs = append(defs, def)
	}

	return New(defs...)
}

// New builds a catalog from definitions, validating each one.
func New(defs ...*patch.Definition) (*Catalog, error) {
	c := &Catalog{
		defs:   make([]*patch.Definition, 0, len(defs)),
		byName: make(map[string]*patch.Definition, len(defs)),
	}
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		key := normalize(def.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, def.Name)
		}
		c.byName[key] = def
		c.defs = append(c.defs, def)
	}
	return c, nil
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

var (
	builtinOnce sync.Once
	builtin     *Catalog
	builtinErr  error
)

// Builtin returns the embedded catalog.
func Builtin() (*Catalog, error) {
	builtinOnce.Do(func() {
		builtin, builtinErr = parseBuiltin(builtinYAML)
	})
	return builtin, builtinErr
}

// parseBuiltin parses data and requires a definition for every Kind.
func parseBuiltin(data []byte) (*Catalog, error) {
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	for _, k := range Kinds() {
		if _, ok := c.byName[string(k)]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingKind, k)
		}
	}
	return c, nil
}

// Lookup finds a definition by name. Case and the choice between '-' and '_'
// are ignored, so "ModdedIronman" does not match but "MODDED_IRONMAN" does.
func (c *Catalog) Lookup(name string) (*patch.Definition, error) {
	def, ok := c.byName[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownPatch, name, strings.Join(c.Names(), ", "))
	}
	return def, nil
}

// LookupAll resolves several names, failing on the first unknown one.
func (c *Catalog) LookupAll(names []string) ([]*patch.Definition, error) {
	defs := make([]*patch.Definition, 0, len(names))
	for _, n := range names {
		def, err := c.Lookup(n)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Definitions returns the definitions in document order.
func (c *Catalog) Definitions() []*patch.Definition {
	out := make([]*patch.Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Names returns the definition names in document order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.defs))
	for i, d := range c.defs {
		names[i] = d.Name
	}
	return names
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// Encode writes the catalog as a YAML document that Parse accepts.
func (c *Catalog) Encode(w io.Writer) error {
	doc := document{Patches: make([]entry, 0, len(c.defs))}
	for _, def := range c.defs {
		e := entry{Name: def.Name, Description: def.Description, Edits: make([]editEntry, len(def.Edits))}
		for i, ed := range def.Edits {
			e.Edits[i] = editEntry{
				Anchor: sig.Pattern(ed.Anchor),
				Before: sig.Pattern(ed.Before),
				After:  sig.Literal(ed.After),
				Window: ed.Window,
			}
		}
		doc.Patches = append(doc.Patches, e)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}
