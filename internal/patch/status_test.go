package patch

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	wrap := func(err error) error {
		return fmt.Errorf("outer: %w", &Error{Patch: "p", Edit: 0, Offset: -1, Op: "scan", Err: err})
	}

	assert.Equal(t, StatusAvailable, StatusOf(nil))
	assert.Equal(t, StatusAlreadyApplied, StatusOf(wrap(ErrAlreadyApplied)))
	assert.Equal(t, StatusAmbiguous, StatusOf(wrap(ErrMultiplePossibleLocations)))
	assert.Equal(t, StatusUnavailable, StatusOf(wrap(ErrUnavailable)))
	assert.Equal(t, StatusUnavailable, StatusOf(wrap(ErrPatchFileDoesNotMatchTarget)))
	assert.Equal(t, StatusInvalid, StatusOf(wrap(ErrLengthMismatch)))
	assert.Equal(t, StatusInvalid, StatusOf(wrap(ErrInvalidEdit)))
}

func TestProbe(t *testing.T) {
	image := scenarioImage()

	rep := Probe(scenarioDef(), image)
	require.Equal(t, StatusAvailable, rep.Status)
	require.Equal(t, []int{2}, rep.Offsets)
	require.Empty(t, rep.Error)
	require.NotNil(t, rep.Resolved)
	require.Equal(t, scenarioImage(), image)

	require.NoError(t, rep.Resolved.Apply(image))
	rep = Probe(scenarioDef(), image)
	require.Equal(t, StatusAlreadyApplied, rep.Status)
	require.Nil(t, rep.Resolved)
	require.Contains(t, rep.Error, "already applied")
}

func TestReport_JSON(t *testing.T) {
	rep := Probe(scenarioDef(), scenarioImage())

	out, err := json.Marshal(rep)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"scenario","status":"AVAILABLE","offsets":[2]}`, string(out))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "AVAILABLE", StatusAvailable.String())
	assert.Equal(t, "APPLIED", StatusAlreadyApplied.String())
	assert.Equal(t, "UNAVAILABLE", StatusUnavailable.String())
	assert.Equal(t, "AMBIGUOUS", StatusAmbiguous.String())
	assert.Equal(t, "INVALID", StatusInvalid.String())
	assert.Equal(t, "UNKNOWN", Status(42).String())
}

func TestStatus_UnmarshalText(t *testing.T) {
	for s := StatusAvailable; s <= StatusInvalid; s++ {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var back Status
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}

	var s Status
	require.Error(t, s.UnmarshalText([]byte("UNKNOWN")))
}
