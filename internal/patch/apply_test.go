package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_Scenario(t *testing.T) {
	image := scenarioImage()

	r, err := Resolve(scenarioDef(), image)
	require.NoError(t, err)
	require.NoError(t, r.Apply(image))
	require.Equal(t, []byte{0x01, 0x02, 0x40, 0xFE, 0xC3, 0x03}, image)
}

func TestApply_Idempotence(t *testing.T) {
	image := scenarioImage()
	def := scenarioDef()

	r, err := Resolve(def, image)
	require.NoError(t, err)
	require.NoError(t, r.Apply(image))
	afterFirst := append([]byte(nil), image...)

	_, err = Resolve(def, image)
	require.ErrorIs(t, err, ErrAlreadyApplied)
	require.Equal(t, afterFirst, image)
}

func TestApply_RoundTrip(t *testing.T) {
	image, def := twoEditImage(t)

	r, err := Resolve(def, image)
	require.NoError(t, err)
	require.NoError(t, r.Apply(image))

	for _, e := range r.Edits() {
		assert.Equal(t, e.After, image[e.Offset:e.End()])
		assert.False(t, Match(image[e.Offset:e.End()], e.Before))
	}
}

// Resolve against one copy, apply to another identical copy.
func TestApply_SeparateBuffer(t *testing.T) {
	scanned, def := twoEditImage(t)
	target := append([]byte(nil), scanned...)

	r, err := Resolve(def, scanned)
	require.NoError(t, err)
	require.NoError(t, r.Apply(target))

	assert.Equal(t, []byte{0x90, 0x90}, target[20:22])
	assert.NotEqual(t, scanned, target, "scanned copy must stay untouched")
}

func TestApply_VerifyFailureIsAtomic(t *testing.T) {
	scanned, def := twoEditImage(t)

	r, err := Resolve(def, scanned)
	require.NoError(t, err)

	// The second edit's bytes diverge in the buffer being patched.
	target := append([]byte(nil), scanned...)
	target[227] = 0x85
	orig := append([]byte(nil), target...)

	err = r.Apply(target)
	require.ErrorIs(t, err, ErrPatchFileDoesNotMatchTarget)
	require.Equal(t, orig, target, "no edit may be written when verify fails")

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "verify", perr.Op)
	assert.Equal(t, 1, perr.Edit)
	assert.Equal(t, 226, perr.Offset)
}

func TestApply_ShorterImage(t *testing.T) {
	image := scenarioImage()

	r, err := Resolve(scenarioDef(), image)
	require.NoError(t, err)

	short := image[:4]
	err = r.Apply(short)
	require.ErrorIs(t, err, ErrPatchFileDoesNotMatchTarget)
	require.Equal(t, []byte{0x01, 0x02, 0x0F, 0x94}, short)
}

// Wildcard positions in before tolerate build-specific bytes at apply time.
func TestApply_WildcardBefore(t *testing.T) {
	image := []byte{
		0x48, 0x8B, 0x05, 0x11, 0x22, 0x33, 0x44,
		0x80, 0xB8, 0xF0, 0x24, 0x00, 0x00, 0x00, 0x74, 0x0C,
	}
	def := &Definition{Name: "wild", Edits: []SubEdit{{
		Anchor: []byte{0x48, 0x8B, 0x05, Wildcard, Wildcard, Wildcard, Wildcard, 0x80, 0xB8, Wildcard, 0x24, 0x00, 0x00, 0x00, 0x74, 0x0C},
		Before: []byte{0x80, 0xB8, Wildcard, 0x24, 0x00, 0x00, 0x00, 0x74},
		After:  []byte{0xC6, 0x80, 0xF0, 0x24, 0x00, 0x00, 0x00, 0xEB},
	}}}

	r, err := Resolve(def, image)
	require.NoError(t, err)
	require.Equal(t, []int{7}, r.Offsets())
	require.NoError(t, r.Apply(image))
	require.Equal(t, []byte{0xC6, 0x80, 0xF0, 0x24, 0x00, 0x00, 0x00, 0xEB}, image[7:15])
}

func TestVerify_DoesNotWrite(t *testing.T) {
	image := scenarioImage()

	r, err := Resolve(scenarioDef(), image)
	require.NoError(t, err)
	require.NoError(t, r.Verify(image))
	require.Equal(t, scenarioImage(), image)
}
