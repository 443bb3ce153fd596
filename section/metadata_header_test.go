package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/clrmeta/errs"
)

func TestMetadataHeader_PrologSize(t *testing.T) {
	tests := []struct {
		version string
		want    uint32
	}{
		{DefaultVersion, 0x20},
		{"", 24},
		{"abc", 24},
		{"abcd", 28},
		{"v2.0.50727", 0x20},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			h := NewMetadataHeader()
			h.Version = tt.version
			require.Equal(t, tt.want, h.PrologSize())
			require.Len(t, h.Bytes(), int(tt.want))
		})
	}
}

func TestMetadataHeader_ParseBytes(t *testing.T) {
	h := NewMetadataHeader()
	h.Streams = []StreamHeader{
		{Offset: 0x6C, Size: 0x100, Name: "#~"},
		{Offset: 0x16C, Size: 0x40, Name: "#Strings"},
		{Offset: 0x1AC, Size: 0x10, Name: "#GUID"},
	}

	data := h.Bytes()
	require.Equal(t, int(h.HeaderSize()), len(data))
	require.Equal(t, uint32(0x20+12+20+16), h.HeaderSize())
	require.Equal(t, []byte{0x42, 0x53, 0x4A, 0x42}, data[:4])

	parsed, err := ParseMetadataHeader(append(data, 0xFF, 0xFF))
	require.NoError(t, err)
	require.Equal(t, h, parsed)

	s, ok := parsed.Stream("#Strings")
	require.True(t, ok)
	require.Equal(t, uint32(0x16C), s.Offset)
	_, ok = parsed.Stream("#Blob")
	require.False(t, ok)
}

func TestMetadataHeader_ParseErrors(t *testing.T) {
	valid := NewMetadataHeader()
	valid.Streams = []StreamHeader{{Offset: 0x2C, Size: 4, Name: "#US"}}
	data := valid.Bytes()

	t.Run("Too short", func(t *testing.T) {
		_, err := ParseMetadataHeader(data[:8])
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})

	t.Run("Bad signature", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] = 'X'
		_, err := ParseMetadataHeader(bad)
		require.ErrorIs(t, err, errs.ErrInvalidMetadataSignature)
	})

	t.Run("Version length too large", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		engine.PutUint32(bad[12:16], 1024)
		_, err := ParseMetadataHeader(bad)
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})

	t.Run("Truncated stream header", func(t *testing.T) {
		_, err := ParseMetadataHeader(data[:len(data)-2])
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})

	t.Run("Unterminated stream name", func(t *testing.T) {
		bad := append([]byte(nil), data[:0x20]...)
		bad = append(bad, 0, 0, 0, 0, 0, 0, 0, 0)
		for range MaxStreamNameLength {
			bad = append(bad, 'a')
		}
		_, err := ParseMetadataHeader(bad)
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})
}

func TestStreamHeader_HeaderSize(t *testing.T) {
	require.Equal(t, uint32(12), (&StreamHeader{Name: "#~"}).HeaderSize())
	require.Equal(t, uint32(12), (&StreamHeader{Name: "#US"}).HeaderSize())
	require.Equal(t, uint32(16), (&StreamHeader{Name: "#GUID"}).HeaderSize())
	require.Equal(t, uint32(20), (&StreamHeader{Name: "#Strings"}).HeaderSize())

	s := StreamHeader{Offset: 1, Size: 2, Name: "#Blob"}
	b := s.Bytes()
	require.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0, '#', 'B', 'l', 'o', 'b', 0, 0, 0}, b)

	var parsed StreamHeader
	n, err := parsed.Parse(b)
	require.NoError(t, err)
	require.Equal(t, 16, n)
	require.Equal(t, s, parsed)
}
