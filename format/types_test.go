package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableType(t *testing.T) {
	require.Equal(t, "TypeDef", TableTypeDef.String())
	require.Equal(t, "GenericParamConstraint", TableGenericParamConstraint.String())
	require.Equal(t, "Unused", TableUnused.String())
	require.Equal(t, "TableType(0x2d)", TableType(0x2d).String())

	require.True(t, TableGenericParamConstraint.IsValid())
	require.False(t, TableType(TableCount).IsValid())

	require.Equal(t, uint64(0x4), TableTypeDef.Mask())
	require.Equal(t, uint32(0x02000003), TableTypeDef.Token(3))
}

func TestElementType(t *testing.T) {
	require.Equal(t, "GenericInst", ElementGenericInst.String())
	require.Equal(t, "ElementType(0x17)", ElementType(0x17).String())

	require.True(t, ElementI4.IsPrimitive())
	require.True(t, ElementObject.IsPrimitive())
	require.False(t, ElementClass.IsPrimitive())
	require.False(t, ElementSzArray.IsPrimitive())
}

func TestCompressionType(t *testing.T) {
	for _, c := range []CompressionType{CompressionNone, CompressionZstd, CompressionS2, CompressionLZ4} {
		parsed, ok := ParseCompressionType(c.String())
		require.True(t, ok)
		require.Equal(t, c, parsed)
	}

	_, ok := ParseCompressionType("brotli")
	require.False(t, ok)
	require.Equal(t, "Unknown", CompressionType(0).String())
}

func TestHeapKind(t *testing.T) {
	require.Equal(t, HeapOffsetStringsLarge, HeapStrings.LargeFlag())
	require.Equal(t, HeapOffsetGUIDLarge, HeapGUID.LargeFlag())
	require.Equal(t, HeapOffsetBlobLarge, HeapBlob.LargeFlag())
	require.Equal(t, uint8(0), HeapUserStrings.LargeFlag())
	require.Equal(t, "Blob", HeapBlob.String())
}
