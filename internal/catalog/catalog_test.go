package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/sigpatch/internal/patch"
)

func TestBuiltin(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	for _, k := range Kinds() {
		def, err := c.Lookup(string(k))
		require.NoError(t, err, "built-in kind %s", k)
		require.NotEmpty(t, def.Description)
	}

	again, err := Builtin()
	require.NoError(t, err)
	require.Same(t, c, again)
}

func TestParseBuiltin_MissingKind(t *testing.T) {
	_, err := parseBuiltin([]byte(`
patches:
  - name: modded-ironman
    edits:
      - {anchor: "01 48 8D 97", before: "0F 94 C3", after: "40 FE C3"}
`))
	require.ErrorIs(t, err, ErrMissingKind)
	assert.Contains(t, err.Error(), string(EnableIronmanLoading))
}

func TestBuiltin_Definitions(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	modded, err := c.Lookup(string(ModdedIronman))
	require.NoError(t, err)
	require.Len(t, modded.Edits, 1)
	assert.Equal(t, []byte{0x0F, 0x94, 0xC3}, modded.Edits[0].Before)
	assert.Equal(t, []byte{0x40, 0xFE, 0xC3}, modded.Edits[0].After)
	assert.Equal(t, patch.DefaultWindow, modded.Edits[0].SearchWindow())

	loading, err := c.Lookup(string(EnableIronmanLoading))
	require.NoError(t, err)
	require.Len(t, loading.Edits, 2)
	assert.Equal(t, []byte{0x90, 0x90, 0x90, 0x90, 0x90, 0x90}, loading.Edits[1].After)

	midgame, err := c.Lookup(string(MidgameIronman))
	require.NoError(t, err)
	assert.Contains(t, midgame.Edits[0].Anchor, patch.Wildcard)
	assert.Equal(t, patch.Wildcard, midgame.Edits[0].Before[2])
	assert.Equal(t, byte(0xF0), midgame.Edits[0].After[2])
}

// A synthetic image carrying every built-in signature resolves each patch.
func TestBuiltin_ResolvesAgainstImage(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	fill := func(p []byte) []byte {
		out := append([]byte(nil), p...)
		for i, b := range out {
			if b == patch.Wildcard {
				out[i] = 0x11
			}
		}
		return out
	}

	image := bytes.Repeat([]byte{0xCC}, 64)
	for _, def := range c.Definitions() {
		for _, e := range def.Edits {
			anchor := fill(e.Anchor)
			image = append(image, anchor...)
			if !bytes.Contains(anchor, fill(e.Before)) {
				image = append(image, 0xCC, 0xCC)
				image = append(image, fill(e.Before)...)
			}
			image = append(image, bytes.Repeat([]byte{0xCC}, 128)...)
		}
	}

	engine := patch.NewEngine(patch.EngineConfig{})
	for _, rep := range engine.Survey(image, c.Definitions()) {
		assert.Equal(t, patch.StatusAvailable, rep.Status, "%s: %s", rep.Name, rep.Error)
	}

	result, err := engine.Apply(image, c.Definitions())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Applied)

	for _, rep := range engine.Survey(image, c.Definitions()) {
		if rep.Name == string(ModdedIronman) {
			assert.Equal(t, patch.StatusAlreadyApplied, rep.Status)
			continue
		}
		// The replaced bytes sit inside these anchors, so they stop matching.
		assert.Equal(t, patch.StatusUnavailable, rep.Status, rep.Name)
	}
}

func TestLookup(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	for _, name := range []string{"modded-ironman", "MODDED_IRONMAN", " Modded-Ironman "} {
		def, err := c.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, "modded-ironman", def.Name)
	}

	_, err = c.Lookup("god-mode")
	require.ErrorIs(t, err, ErrUnknownPatch)
	assert.Contains(t, err.Error(), "modded-ironman")

	defs, err := c.LookupAll([]string{"midgame-ironman", "modded-ironman"})
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "midgame-ironman", defs[0].Name)

	_, err = c.LookupAll([]string{"modded-ironman", "nope"})
	require.ErrorIs(t, err, ErrUnknownPatch)
}

func TestNames(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)
	assert.Equal(t, []string{"modded-ironman", "enable-ironman-loading", "midgame-ironman"}, c.Names())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name: "length mismatch",
			doc: `
patches:
  - name: bad
    edits:
      - anchor: "01 02"
        before: "0F 94 C3"
        after: "90 90"
`,
			wantErr: patch.ErrLengthMismatch,
		},
		{
			name: "duplicate",
			doc: `
patches:
  - name: a
    edits:
      - {anchor: "01 02", before: "03", after: "04"}
  - name: A
    edits:
      - {anchor: "05 06", before: "07", after: "08"}
`,
			wantErr: ErrDuplicateName,
		},
		{
			name: "missing name",
			doc: `
patches:
  - edits:
      - {anchor: "01 02", before: "03", after: "04"}
`,
			wantErr: ErrMissingName,
		},
		{
			name: "no edits",
			doc: `
patches:
  - name: empty
`,
			wantErr: patch.ErrInvalidEdit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse_DecodeErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown field":  "patches:\n  - name: x\n    color: red\n",
		"wildcard after": "patches:\n  - name: x\n    edits:\n      - {anchor: \"01\", before: \"02\", after: \"??\"}\n",
		"literal 2A":     "patches:\n  - name: x\n    edits:\n      - {anchor: \"01 2A\", before: \"02\", after: \"03\"}\n",
		"not a document": "patches: 7\n",
		"empty":          "",
		"bad hex":        "patches:\n  - name: x\n    edits:\n      - {anchor: \"GG\", before: \"02\", after: \"03\"}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestParse_Window(t *testing.T) {
	c, err := Parse([]byte(`
patches:
  - name: far
    description: far target
    edits:
      - anchor: "11 22"
        before: "33"
        after: "44"
        window: 4096
`))
	require.NoError(t, err)
	def, err := c.Lookup("far")
	require.NoError(t, err)
	assert.Equal(t, 4096, def.Edits[0].SearchWindow())
	assert.Equal(t, "far target", def.Description)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
patches:
  - name: extra
    edits:
      - {anchor: "AA BB", before: "CC", after: "DD"}
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"extra"}, c.Names())

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte("patches: 7\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestEncode_RoundTrip(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf))
	assert.Contains(t, buf.String(), "48 8B 05 ?? ?? ?? ?? 80 B8 ?? 24 00 00 00 74 0C")

	back, err := Parse(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, c.Names(), back.Names())
	for i, def := range back.Definitions() {
		assert.Equal(t, c.Definitions()[i].Edits, def.Edits)
	}
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(&patch.Definition{Name: "x", Edits: []patch.SubEdit{{
		Anchor: []byte{0x01},
		Before: []byte{0x02},
		After:  []byte{0x02},
	}}})
	require.ErrorIs(t, err, patch.ErrInvalidEdit)
}
