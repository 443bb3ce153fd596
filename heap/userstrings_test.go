package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/clrmeta/errs"
)

func TestUserStringHeap(t *testing.T) {
	// "Hi" = 48 00 69 00, flag 0
	h := LoadUserStringHeap([]byte{0x00, 0x05, 'H', 0x00, 'i', 0x00, 0x00, 0x00})
	require.Equal(t, "#US", h.Name())

	s, err := h.GetStringByOffset(1)
	require.NoError(t, err)
	require.Equal(t, "Hi", s)

	off, err := h.GetStringOffset("Hi")
	require.NoError(t, err)
	require.Equal(t, uint32(1), off)

	off, err = h.GetStringOffset("it's")
	require.NoError(t, err)
	require.Equal(t, uint32(8), off)

	raw := h.Bytes()[off:]
	require.Equal(t, byte(9), raw[0])
	require.Equal(t, byte(1), raw[9], "apostrophe sets the special-handling flag")

	s, err = h.GetStringByOffset(off)
	require.NoError(t, err)
	require.Equal(t, "it's", s)

	_, err = h.GetStringByOffset(500)
	require.ErrorIs(t, err, errs.ErrMalformedEncoding)
}

func TestUserStringFlag(t *testing.T) {
	require.Equal(t, byte(0), userStringFlag([]byte{'a', 0}))
	require.Equal(t, byte(1), userStringFlag([]byte{0xE9, 0x01}))
	require.Equal(t, byte(1), userStringFlag([]byte{0x7F, 0}))
	require.Equal(t, byte(0), userStringFlag(nil))
}
