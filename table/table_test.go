package table

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
)

func TestTable_AppendInsertRemove(t *testing.T) {
	th := NewTablesHeap()
	params, err := th.GetOrCreateTable(format.TableParam)
	require.NoError(t, err)

	a, err := params.Append(U(0), U(1), Str("a"))
	require.NoError(t, err)
	c, err := params.Append(U(0), U(3), Str("c"))
	require.NoError(t, err)
	b, err := params.Insert(2, U(0), U(2), Str("b"))
	require.NoError(t, err)

	require.Equal(t, 3, params.Len())
	require.Equal(t, uint32(1), a.RID())
	require.Equal(t, uint32(2), b.RID())
	require.Equal(t, uint32(3), c.RID())
	require.Equal(t, uint32(0x08000003), c.Token())

	got, err := params.Row(2)
	require.NoError(t, err)
	require.Same(t, b, got)

	require.NoError(t, params.Remove(a))
	require.True(t, a.Detached())
	require.Zero(t, a.RID())
	require.Equal(t, uint32(1), b.RID())
	require.Equal(t, uint32(2), c.RID())

	require.ErrorIs(t, params.Remove(a), errs.ErrUnresolvedReference)

	_, err = params.Row(0)
	require.ErrorIs(t, err, errs.ErrUnresolvedReference)
	_, err = params.Row(3)
	require.ErrorIs(t, err, errs.ErrUnresolvedReference)
	_, err = params.Insert(5, U(0), U(0), Str("x"))
	require.ErrorIs(t, err, errs.ErrUnresolvedReference)
}

func TestTable_SchemaMismatch(t *testing.T) {
	th := NewTablesHeap()
	fields, err := th.GetOrCreateTable(format.TableField)
	require.NoError(t, err)
	refs, err := th.GetOrCreateTable(format.TableTypeRef)
	require.NoError(t, err)

	_, err = fields.Append(U(0), Str("x"))
	require.ErrorIs(t, err, errs.ErrTableSchemaMismatch)

	_, err = fields.Append(U(0), U(1), BlobOffset(0))
	require.ErrorIs(t, err, errs.ErrTableSchemaMismatch)

	_, err = fields.Append(U(0), Str("x"), GUID(uuid.New()))
	require.ErrorIs(t, err, errs.ErrTableSchemaMismatch)

	field, err := fields.Append(U(0), Str("x"), BlobOffset(1))
	require.NoError(t, err)

	// a Field row is not part of ResolutionScope
	_, err = refs.Append(Ref(field), Str("T"), Str(""))
	require.ErrorIs(t, err, errs.ErrTableSchemaMismatch)

	require.ErrorIs(t, field.Set(1, U(3)), errs.ErrTableSchemaMismatch)
	require.ErrorIs(t, field.Set(9, U(3)), errs.ErrTableSchemaMismatch)

	_, err = th.GetOrCreateTable(format.TableUnused)
	require.ErrorIs(t, err, errs.ErrTableSchemaMismatch)
}

func TestTable_Modified(t *testing.T) {
	th := NewTablesHeap()
	fields, err := th.GetOrCreateTable(format.TableField)
	require.NoError(t, err)

	for range 3 {
		_, err = fields.Append(U(0), Str("f"), BlobOffset(0))
		require.NoError(t, err)
	}
	require.Equal(t, uint64(3), fields.Modified().GetCardinality())

	fields.clearModified()
	require.True(t, fields.Modified().IsEmpty())

	row, err := fields.Row(2)
	require.NoError(t, err)
	require.NoError(t, row.Set(1, Str("renamed")))
	require.True(t, row.Modified())
	require.Equal(t, []uint32{2}, fields.Modified().ToArray())

	name, ok := row.Named("Name")
	require.True(t, ok)
	require.Equal(t, "renamed", name.Text())
	_, ok = row.Named("Nope")
	require.False(t, ok)
}

func TestCell_String(t *testing.T) {
	th := NewTablesHeap()
	refs, err := th.GetOrCreateTable(format.TableTypeRef)
	require.NoError(t, err)
	row, err := refs.Append(Null(), Str("Object"), Str("System"))
	require.NoError(t, err)

	require.Equal(t, "0x10", U(16).String())
	require.Equal(t, `"a"`, Str("a").String())
	require.Equal(t, "blob@0x4", BlobOffset(4).String())
	require.Equal(t, "blob[2]", BlobValue([]byte{1, 2}).String())
	require.Equal(t, "TypeRef[1]", Ref(row).String())
	require.Equal(t, "null", Null().String())
	require.Equal(t, CellNull, Ref(nil).Kind())

	require.NoError(t, refs.Remove(row))
	require.Equal(t, "TypeRef[removed]", Ref(row).String())
}

func TestBlobValue_CopiesInput(t *testing.T) {
	src := []byte{1, 2, 3}
	c := BlobValue(src)
	src[0] = 9
	require.Equal(t, []byte{1, 2, 3}, c.Blob())
}
