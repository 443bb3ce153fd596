package section

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateLayout(t *testing.T) {
	h := NewMetadataHeader()
	streams := []StreamSize{
		{Name: "#~", Size: 0x1F2},
		{Name: "#Strings", Size: 0x2A1},
		{Name: "#US", Size: 0x1C},
		{Name: "#GUID", Size: 0x10},
		{Name: "#Blob", Size: 0xB5},
	}

	l := CalculateLayout(h, streams)

	// 0x20 prolog + 12 + 20 + 12 + 16 + 16 stream headers
	require.Equal(t, uint32(0x6C), l.HeaderSize)
	require.Len(t, l.Streams, 5)

	want := []StreamHeader{
		{Offset: 0x6C, Size: 0x1F4, Name: "#~"},
		{Offset: 0x260, Size: 0x2A4, Name: "#Strings"},
		{Offset: 0x504, Size: 0x1C, Name: "#US"},
		{Offset: 0x520, Size: 0x10, Name: "#GUID"},
		{Offset: 0x530, Size: 0xB8, Name: "#Blob"},
	}
	require.Equal(t, want, l.Streams)
	require.Equal(t, uint32(0x5E8), l.TotalSize)

	l.Apply(h)
	require.Equal(t, l.HeaderSize, h.HeaderSize())
	require.Equal(t, want, h.Streams)
}

func TestCalculateLayout_Empty(t *testing.T) {
	h := NewMetadataHeader()
	l := CalculateLayout(h, nil)
	require.Equal(t, uint32(0x20), l.HeaderSize)
	require.Equal(t, uint32(0x20), l.TotalSize)
	require.Empty(t, l.Streams)
}

func TestAlignSize(t *testing.T) {
	require.Equal(t, uint32(0), AlignSize(0))
	require.Equal(t, uint32(4), AlignSize(1))
	require.Equal(t, uint32(4), AlignSize(4))
	require.Equal(t, uint32(8), AlignSize(5))
}
