package heap

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/clrmeta/errs"
)

func TestGuidHeap(t *testing.T) {
	g1 := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	g2 := uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")

	data := append(append([]byte{}, g1[:]...), g2[:]...)
	h := LoadGuidHeap(data)
	require.Equal(t, "#GUID", h.Name())
	require.Equal(t, 2, h.Len())

	g, err := h.GetGuidByOffset(0)
	require.NoError(t, err)
	require.Equal(t, uuid.Nil, g)

	g, err = h.GetGuidByOffset(1)
	require.NoError(t, err)
	require.Equal(t, g1, g)

	g, err = h.GetGuidByOffset(2)
	require.NoError(t, err)
	require.Equal(t, g2, g)

	_, err = h.GetGuidByOffset(3)
	require.ErrorIs(t, err, errs.ErrMalformedEncoding)

	idx, err := h.GetGuidOffset(g2)
	require.NoError(t, err)
	require.Equal(t, uint32(2), idx)

	g3 := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	idx, err = h.GetGuidOffset(g3)
	require.NoError(t, err)
	require.Equal(t, uint32(3), idx)
	require.Equal(t, uint32(48), h.Size())

	idx, err = h.GetGuidOffset(uuid.Nil)
	require.NoError(t, err)
	require.Zero(t, idx)
}
