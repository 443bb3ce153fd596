package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
	"github.com/arloliu/clrmeta/heap"
)

func buildStream(h Header, counts []uint32, extra []uint32, rows ...[]byte) []byte {
	b := h.Bytes()
	for _, c := range counts {
		b = le.AppendUint32(b, c)
	}
	for _, e := range extra {
		b = le.AppendUint32(b, e)
	}
	for _, r := range rows {
		b = append(b, r...)
	}

	return b
}

func TestHeader_ParseBytes(t *testing.T) {
	h := Header{
		MajorVersion:    2,
		MinorVersion:    0,
		HeapOffsetSizes: format.HeapOffsetBlobLarge,
		Reserved2:       1,
		MaskValid:       0x0000_0009_0000_0057,
		MaskSorted:      DefaultMaskSorted,
	}

	b := h.Bytes()
	require.Len(t, b, HeaderSize)

	var parsed Header
	require.NoError(t, parsed.Parse(b))
	require.Equal(t, h, parsed)
	require.Equal(t, 7, parsed.TableCount())

	require.ErrorIs(t, parsed.Parse(b[:HeaderSize-1]), errs.ErrInvalidHeaderSize)
}

func TestParseTablesHeap_ExtraData(t *testing.T) {
	strs := heap.LoadStringHeap([]byte("\x00kernel32\x00"))
	h := Header{
		MajorVersion:    2,
		Reserved2:       1,
		HeapOffsetSizes: format.HeapOffsetExtraData,
		MaskValid:       format.TableModuleRef.Mask(),
	}
	data := buildStream(h, []uint32{1}, []uint32{0xDEADBEEF}, []byte{0x01, 0x00})

	th, err := ParseTablesHeap(format.StreamUncompressedTable, data, strs, heap.NewGuidHeap())
	require.NoError(t, err)
	require.Equal(t, format.StreamUncompressedTable, th.Name())
	require.Equal(t, data, th.Bytes())

	refs, ok := th.Table(format.TableModuleRef)
	require.True(t, ok)
	row, err := refs.Row(1)
	require.NoError(t, err)
	require.Equal(t, "kernel32", row.Cell(0).Text())
	require.Equal(t, []uint32{1}, row.Raw())

	// the extra data word is not written back
	r, err := NewReconstructor(th, heap.NewGuidHeap(), nil)
	require.NoError(t, err)
	res, err := r.Reconstruct()
	require.NoError(t, err)
	require.Zero(t, res.HeapOffsetSizes&format.HeapOffsetExtraData)
	require.Equal(t, uint32(HeaderSize+4+2), res.Size)
}

func TestParseTablesHeap_Errors(t *testing.T) {
	strs := heap.NewStringHeap()
	guids := heap.NewGuidHeap()
	base := Header{MajorVersion: 2, Reserved2: 1}

	t.Run("short header", func(t *testing.T) {
		_, err := ParseTablesHeap(format.StreamTables, make([]byte, 10), strs, guids)
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})

	t.Run("unknown table", func(t *testing.T) {
		h := base
		h.MaskValid = 1 << 50
		_, err := ParseTablesHeap(format.StreamTables, buildStream(h, []uint32{1}, nil), strs, guids)
		require.ErrorIs(t, err, errs.ErrTableSchemaMismatch)
	})

	t.Run("truncated row counts", func(t *testing.T) {
		h := base
		h.MaskValid = format.TableModuleRef.Mask() | format.TableTypeSpec.Mask()
		_, err := ParseTablesHeap(format.StreamTables, buildStream(h, []uint32{1}, nil), strs, guids)
		require.ErrorIs(t, err, errs.ErrStreamOutOfRange)
	})

	t.Run("truncated rows", func(t *testing.T) {
		h := base
		h.MaskValid = format.TableModuleRef.Mask()
		_, err := ParseTablesHeap(format.StreamTables, buildStream(h, []uint32{2}, nil, []byte{0, 0, 0}), strs, guids)
		require.ErrorIs(t, err, errs.ErrStreamOutOfRange)
	})

	t.Run("absent target table", func(t *testing.T) {
		h := base
		h.MaskValid = format.TableInterfaceImpl.Mask()
		// Class = TypeDef 1, Interface = TypeRef 1
		data := buildStream(h, []uint32{1}, nil, []byte{0x01, 0x00, 0x05, 0x00})
		_, err := ParseTablesHeap(format.StreamTables, data, strs, guids)
		require.ErrorIs(t, err, errs.ErrUnresolvedReference)
	})

	t.Run("row out of range", func(t *testing.T) {
		h := base
		h.MaskValid = format.TableModuleRef.Mask() | format.TableImplMap.Mask()
		// ImplMap: flags, MemberForwarded null, name 0, ImportScope = ModuleRef 2
		data := buildStream(h, []uint32{1, 1}, nil,
			[]byte{0x00, 0x00},
			[]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00})
		_, err := ParseTablesHeap(format.StreamTables, data, strs, guids)
		require.ErrorIs(t, err, errs.ErrUnresolvedReference)
	})

	t.Run("reserved coded tag", func(t *testing.T) {
		h := base
		h.MaskValid = format.TableModule.Mask() | format.TableCustomAttribute.Mask()
		// Parent = Module 1 (tag 7), Type tag 0 is reserved
		data := buildStream(h, []uint32{1, 1}, nil,
			make([]byte, 10),
			[]byte{0x27, 0x00, 0x08, 0x00, 0x00, 0x00})
		_, err := ParseTablesHeap(format.StreamTables, data, strs, guids)
		require.ErrorIs(t, err, errs.ErrUnresolvedReference)
	})

	t.Run("bad string offset", func(t *testing.T) {
		h := base
		h.MaskValid = format.TableModuleRef.Mask()
		data := buildStream(h, []uint32{1}, nil, []byte{0x40, 0x00})
		_, err := ParseTablesHeap(format.StreamTables, data, strs, guids)
		require.ErrorIs(t, err, errs.ErrMalformedEncoding)
	})
}

func TestTablesHeap_Accessors(t *testing.T) {
	th := NewTablesHeap()
	require.Equal(t, format.StreamTables, th.Name())
	require.Empty(t, th.Tables())
	require.False(t, th.HasTable(format.TableTypeDef))

	_, ok := th.Table(format.TableUnused)
	require.False(t, ok)

	defs := mustTable(t, th, format.TableTypeDef)
	mods := mustTable(t, th, format.TableModule)
	again := mustTable(t, th, format.TableTypeDef)
	require.Same(t, defs, again)

	tables := th.Tables()
	require.Len(t, tables, 2)
	require.Same(t, mods, tables[0])
	require.Same(t, defs, tables[1])

	mustAppend(t, defs, U(0), Str("A"), Str(""), Null(), U(1), U(1))
	counts := th.RowCounts()
	require.Equal(t, uint32(1), counts[format.TableTypeDef])
	require.Zero(t, counts[format.TableModule])
}
