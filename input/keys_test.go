package input

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestButtonMask(t *testing.T) {
	expected := map[Button]ButtonMask{
		ButtonLeft:       1,
		ButtonMiddle:     2,
		ButtonRight:      4,
		ButtonWheelUp:    8,
		ButtonWheelDown:  16,
		ButtonWheelLeft:  32,
		ButtonWheelRight: 64,
		ButtonXButton1:   128,
		ButtonXButton2:   256,
	}
	for b, mask := range expected {
		assert.Equal(t, mask, b.Mask(), "mask of %s", b)
		assert.Equal(t, ButtonMask(1)<<(int(b)-1), b.Mask())
	}
}

func TestButtonValidity(t *testing.T) {
	for _, b := range AllButtons {
		assert.True(t, b.Valid(), b.String())
	}
	assert.False(t, Button(0).Valid())
	assert.False(t, Button(10).Valid())
	assert.False(t, Button(-1).Valid())
}

func TestKeyValidity(t *testing.T) {
	assert.True(t, KeyA.Valid())
	assert.True(t, KeyShift.Valid())
	assert.False(t, Key(0).Valid())
	assert.False(t, Key(SpecialKey<<1).Valid())
}

func TestParseKeyAndButton(t *testing.T) {
	k, err := ParseKey("Shift")
	require.NoError(t, err)
	assert.Equal(t, KeyShift, k)

	k, err = ParseKey("a")
	require.NoError(t, err)
	assert.Equal(t, KeyA, k)

	_, err = ParseKey("NoSuchKey")
	var invalid *InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "key", invalid.Kind)

	b, err := ParseButton("Right")
	require.NoError(t, err)
	assert.Equal(t, ButtonRight, b)

	_, err = ParseButton("Thumb")
	assert.Error(t, err)
}

func TestParseModifier(t *testing.T) {
	for name, expected := range map[string]Modifier{
		"shift": ModShift, "Ctrl": ModControl, "control": ModControl, "ALT": ModAlt, "meta": ModMeta,
	} {
		m, err := ParseModifier(name)
		require.NoError(t, err, name)
		assert.Equal(t, expected, m, name)
	}
	_, err := ParseModifier("hyper")
	var ie *InvalidInputError
	assert.ErrorAs(t, err, &ie)
}
