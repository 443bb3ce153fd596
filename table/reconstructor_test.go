package table

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
	"github.com/arloliu/clrmeta/heap"
)

var testMvid = uuid.MustParse("6f1c2a0e-8d3b-4c55-9e21-0a7b3c4d5e6f")

type testModel struct {
	tables *TablesHeap
	guids  *heap.GuidHeap
	blobs  *heap.BlobHeap

	module *Row
	object *Row
	point  *Row
	circle *Row
	field  *Row
}

func mustTable(t *testing.T, th *TablesHeap, typ format.TableType) *Table {
	t.Helper()

	tbl, err := th.GetOrCreateTable(typ)
	require.NoError(t, err)

	return tbl
}

func mustAppend(t *testing.T, tbl *Table, cells ...Cell) *Row {
	t.Helper()

	row, err := tbl.Append(cells...)
	require.NoError(t, err)

	return row
}

// newTestModel builds Module, one TypeRef (System.Object), three TypeDefs
// (<Module>, Demo.Point : Object, Demo.Circle : Object) and one int32 field on
// Point.
func newTestModel(t *testing.T) *testModel {
	t.Helper()

	m := &testModel{
		tables: NewTablesHeap(),
		guids:  heap.NewGuidHeap(),
		blobs:  heap.NewBlobHeap(),
	}

	m.module = mustAppend(t, mustTable(t, m.tables, format.TableModule),
		U(0), Str("demo.dll"), GUID(testMvid), GUID(uuid.Nil), GUID(uuid.Nil))
	m.object = mustAppend(t, mustTable(t, m.tables, format.TableTypeRef),
		Ref(m.module), Str("Object"), Str("System"))

	types := mustTable(t, m.tables, format.TableTypeDef)
	mustAppend(t, types, U(0), Str("<Module>"), Str(""), Null(), U(1), U(1))
	m.point = mustAppend(t, types, U(0x00100001), Str("Point"), Str("Demo"), Ref(m.object), U(1), U(1))
	m.circle = mustAppend(t, types, U(0x00100001), Str("Circle"), Str("Demo"), Ref(m.object), U(2), U(1))

	m.field = mustAppend(t, mustTable(t, m.tables, format.TableField),
		U(0x0006), Str("X"), BlobValue([]byte{0x06, 0x08}))

	return m
}

func (m *testModel) reconstruct(t *testing.T, opts ...ReconstructorOption) (*Result, error) {
	t.Helper()

	r, err := NewReconstructor(m.tables, m.guids, m.blobs, opts...)
	require.NoError(t, err)

	return r.Reconstruct()
}

func TestReconstruct_Layout(t *testing.T) {
	m := newTestModel(t)
	mustTable(t, m.tables, format.TableNestedClass)

	res, err := m.reconstruct(t)
	require.NoError(t, err)

	wantMask := format.TableModule.Mask() | format.TableTypeRef.Mask() |
		format.TableTypeDef.Mask() | format.TableField.Mask()
	require.Equal(t, wantMask, res.MaskValid)
	require.Equal(t, []format.TableType{format.TableNestedClass}, res.Dropped)
	require.False(t, m.tables.HasTable(format.TableNestedClass))
	require.Zero(t, res.HeapOffsetSizes)
	require.Empty(t, res.LargeCodedIndices())
	require.Equal(t, uint64(6), res.Modified)

	data := m.tables.Bytes()
	require.Equal(t, res.Size, m.tables.Size())

	var h Header
	require.NoError(t, h.Parse(data))
	require.Zero(t, h.Reserved)
	require.Equal(t, uint8(2), h.MajorVersion)
	require.Equal(t, uint8(1), h.Reserved2)
	require.Equal(t, wantMask, h.MaskValid)
	require.Equal(t, DefaultMaskSorted, h.MaskSorted)
	require.Equal(t, 4, h.TableCount())

	// header, 4 row counts, Module(10) + TypeRef(6) + 3*TypeDef(14) + Field(6)
	require.Equal(t, HeaderSize+4*4+10+6+3*14+6, len(data))
	require.Equal(t, []byte{3, 0, 0, 0}, data[HeaderSize+8:HeaderSize+12])

	// strings are interned in table, row, column order
	s := res.Strings
	require.Equal(t, []byte("\x00demo.dll\x00Object\x00System\x00<Module>\x00Point\x00Demo\x00Circle\x00X\x00"), s.Bytes())

	// TypeRef row: ResolutionScope(Module 1 -> 1<<2|0), TypeName, TypeNamespace
	typeRefRow := data[HeaderSize+16+10:]
	require.Equal(t, []byte{0x04, 0x00, 0x0A, 0x00, 0x11, 0x00}, typeRefRow[:6])

	// TypeDef rows follow Module and TypeRef: Flags, TypeName, TypeNamespace,
	// Extends (TypeRef 1 -> 1<<2|1), FieldList, MethodList
	typeDefRows := data[HeaderSize+16+10+6:]
	require.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x00, 0x18, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
		0x01, 0x00, 0x10, 0x00, 0x21, 0x00, 0x27, 0x00, 0x05, 0x00, 0x01, 0x00, 0x01, 0x00,
		0x01, 0x00, 0x10, 0x00, 0x2C, 0x00, 0x27, 0x00, 0x05, 0x00, 0x02, 0x00, 0x01, 0x00,
	}, typeDefRows[:3*14])

	for _, tbl := range m.tables.Tables() {
		require.True(t, tbl.Modified().IsEmpty(), tbl.Type().String())
	}
}

func TestReconstruct_BlobValuesBecomeOffsets(t *testing.T) {
	m := newTestModel(t)

	_, err := m.reconstruct(t)
	require.NoError(t, err)

	sig := m.field.Cell(2)
	require.Equal(t, CellBlobOffset, sig.Kind())
	require.Equal(t, uint32(1), sig.Uint())
	require.Equal(t, []uint32{0x0006, 0x0033, 1}, m.field.Raw())

	b, err := m.blobs.GetBlob(sig.Uint())
	require.NoError(t, err)
	require.Equal(t, []byte{0x06, 0x08}, b)
	require.Zero(t, m.blobs.Size()%4)

	// rebuilding an unchanged model is stable
	first := append([]byte(nil), m.tables.Bytes()...)
	_, err = m.reconstruct(t)
	require.NoError(t, err)
	require.Equal(t, first, m.tables.Bytes())
}

func TestReconstruct_ParseRoundTrip(t *testing.T) {
	m := newTestModel(t)

	res, err := m.reconstruct(t)
	require.NoError(t, err)

	parsed, err := ParseTablesHeap(format.StreamTables, m.tables.Bytes(), res.Strings, m.guids)
	require.NoError(t, err)
	require.Equal(t, m.tables.RowCounts(), parsed.RowCounts())
	require.Equal(t, res.MaskValid, parsed.MaskValid())

	mod, ok := parsed.Table(format.TableModule)
	require.True(t, ok)
	modRow, err := mod.Row(1)
	require.NoError(t, err)
	require.Equal(t, "demo.dll", modRow.Cell(1).Text())
	require.Equal(t, testMvid, modRow.Cell(2).UUID())
	require.Equal(t, uuid.Nil, modRow.Cell(3).UUID())

	types, ok := parsed.Table(format.TableTypeDef)
	require.True(t, ok)
	point, err := types.Row(2)
	require.NoError(t, err)
	require.Equal(t, "Point", point.Cell(1).Text())
	require.Equal(t, "Demo", point.Cell(2).Text())
	require.Equal(t, uint32(0x00100001), point.Cell(0).Uint())

	base := point.Cell(3).Row()
	require.NotNil(t, base)
	require.Equal(t, format.TableTypeRef, base.Table())
	require.Equal(t, uint32(1), base.RID())
	require.Equal(t, CellNull, types.Rows()[0].Cell(3).Kind())

	scope := base.Cell(0).Row()
	require.Same(t, modRow, scope)
	require.False(t, point.Modified())

	// re-serializing the parsed model yields the same stream
	r, err := NewReconstructor(parsed, m.guids, m.blobs)
	require.NoError(t, err)
	_, err = r.Reconstruct()
	require.NoError(t, err)
	require.Equal(t, m.tables.Bytes(), parsed.Bytes())
}

func TestReconstruct_LargeTables(t *testing.T) {
	th := NewTablesHeap()
	types := mustTable(t, th, format.TableTypeDef)
	const n = 70000
	for range n {
		mustAppend(t, types, U(0), Str("T"), Str(""), Null(), U(1), U(1))
	}
	require.True(t, types.IsLarge())

	r, err := NewReconstructor(th, heap.NewGuidHeap(), heap.NewBlobHeap())
	require.NoError(t, err)
	res, err := r.Reconstruct()
	require.NoError(t, err)

	require.Equal(t, uint32(4), res.Widths.Table[format.TableTypeDef])
	require.Equal(t, uint32(2), res.Widths.Table[format.TableTypeRef])
	require.Equal(t, uint32(4), res.Widths.Coded[format.TypeDefOrRef])
	require.Equal(t, uint32(4), res.Widths.Coded[format.HasCustomAttribute])
	require.Equal(t, uint32(4), res.Widths.Coded[format.TypeOrMethodDef])
	require.Equal(t, uint32(4), res.Widths.Coded[format.MemberRefParent])
	require.Equal(t, uint32(2), res.Widths.Coded[format.MethodDefOrRef])
	require.Contains(t, res.LargeCodedIndices(), format.HasDeclSecurity)

	// Flags 4, two small string offsets, 4-byte Extends, two 2-byte lists
	schema, _ := SchemaOf(format.TableTypeDef)
	require.Equal(t, uint32(16), res.Widths.RowSize(schema))
	require.Equal(t, uint32(HeaderSize+4+n*16), res.Size)
}

func TestReconstruct_LargeStringHeap(t *testing.T) {
	th := NewTablesHeap()
	refs := mustTable(t, th, format.TableModuleRef)
	name := make([]byte, 1000)
	for i := range name {
		name[i] = 'a'
	}
	for i := range 70 {
		name[0] = byte('A' + i%26)
		name[1] = byte('A' + i/26)
		mustAppend(t, refs, Str(string(name)))
	}

	r, err := NewReconstructor(th, nil, nil)
	require.NoError(t, err)
	res, err := r.Reconstruct()
	require.NoError(t, err)

	require.Equal(t, format.HeapOffsetStringsLarge, res.HeapOffsetSizes)
	require.Equal(t, 4, res.Strings.IndexSize())
	require.Equal(t, uint32(HeaderSize+4+70*4), res.Size)
}

func TestReconstruct_NullRequiredReference(t *testing.T) {
	m := newTestModel(t)
	impls := mustTable(t, m.tables, format.TableInterfaceImpl)
	mustAppend(t, impls, Ref(m.point), Null())

	before := m.tables.Bytes()
	_, err := m.reconstruct(t)
	require.ErrorIs(t, err, errs.ErrUnresolvedReference)
	require.Equal(t, before, m.tables.Bytes())
	require.Equal(t, uint64(1), impls.Modified().GetCardinality())

	res, err := m.reconstruct(t, WithStrictReferences(false))
	require.NoError(t, err)
	require.Equal(t, 1, res.NullReferences)
}

func TestReconstruct_OptionalReferences(t *testing.T) {
	m := newTestModel(t)
	resources := mustTable(t, m.tables, format.TableManifestResource)
	mustAppend(t, resources, U(0), U(1), Str("demo.resources"), Null())

	res, err := m.reconstruct(t)
	require.NoError(t, err)
	require.Zero(t, res.NullReferences)
}

func TestReconstruct_RemovedTarget(t *testing.T) {
	m := newTestModel(t)
	refs, _ := m.tables.Table(format.TableTypeRef)
	require.NoError(t, refs.Remove(m.object))

	_, err := m.reconstruct(t, WithStrictReferences(false))
	require.ErrorIs(t, err, errs.ErrUnresolvedReference)
}

func TestReconstruct_ForeignRow(t *testing.T) {
	m := newTestModel(t)
	other := newTestModel(t)

	require.NoError(t, m.point.Set(3, Ref(other.object)))
	_, err := m.reconstruct(t)
	require.ErrorIs(t, err, errs.ErrUnresolvedReference)
}

func TestReconstruct_FixedOverflow(t *testing.T) {
	m := newTestModel(t)
	require.NoError(t, m.field.Set(0, U(0x10000)))

	_, err := m.reconstruct(t)
	require.ErrorIs(t, err, errs.ErrEncodingOverflow)
}

func TestReconstruct_WithoutBlobReconstruction(t *testing.T) {
	m := newTestModel(t)
	m.blobs = heap.LoadBlobHeap([]byte{0x00, 0x01, 0xAA})

	_, err := m.reconstruct(t, WithBlobReconstruction(false))
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x01, 0xAA, 0x02, 0x06, 0x08}, m.blobs.Bytes())
	require.Equal(t, uint32(3), m.field.Cell(2).Uint())
}

func TestReconstruct_SortsSortedTables(t *testing.T) {
	m := newTestModel(t)
	nested := mustTable(t, m.tables, format.TableNestedClass)
	circleIn := mustAppend(t, nested, Ref(m.circle), Ref(m.point))
	pointIn := mustAppend(t, nested, Ref(m.point), Ref(m.circle))

	t.Run("failed rebuild keeps order", func(t *testing.T) {
		impls := mustTable(t, m.tables, format.TableInterfaceImpl)
		broken := mustAppend(t, impls, Ref(m.point), Null())

		_, err := m.reconstruct(t)
		require.ErrorIs(t, err, errs.ErrUnresolvedReference)
		require.Equal(t, []*Row{circleIn, pointIn}, nested.Rows())
		require.Equal(t, uint32(1), circleIn.RID())
		require.Equal(t, uint32(2), pointIn.RID())

		require.NoError(t, impls.Remove(broken))
	})

	t.Run("rows ordered by key", func(t *testing.T) {
		_, err := m.reconstruct(t)
		require.NoError(t, err)
		require.Equal(t, []*Row{pointIn, circleIn}, nested.Rows())
		require.Equal(t, uint32(1), pointIn.RID())
		require.Equal(t, uint32(2), circleIn.RID())
		require.Equal(t, []uint32{2, 3}, pointIn.Raw())
	})

	t.Run("unflagged table left alone", func(t *testing.T) {
		m.tables.header.MaskSorted &^= format.TableNestedClass.Mask()
		require.NoError(t, nested.Remove(pointIn))
		pointIn = mustAppend(t, nested, Ref(m.point), Ref(m.circle))
		_, err := nested.Insert(1, Ref(m.circle), Ref(m.point))
		require.NoError(t, err)

		_, err = m.reconstruct(t)
		require.NoError(t, err)
		require.Same(t, pointIn, nested.Rows()[2])
	})
}
