package clrmeta

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
	"github.com/arloliu/clrmeta/metadata"
	"github.com/arloliu/clrmeta/signature"
	"github.com/arloliu/clrmeta/snapshot"
)

func buildModel(t *testing.T) *metadata.Metadata {
	t.Helper()

	md, err := New()
	require.NoError(t, err)

	_, err = md.AddModule("Point.dll", uuid.MustParse("1f2e3d4c-5b6a-4978-8695-a4b3c2d1e0f9"))
	require.NoError(t, err)
	corlib, err := md.AddAssemblyRef("System.Runtime", metadata.Version{Major: 8}, 0, nil, "")
	require.NoError(t, err)
	valueType, err := md.AddTypeRef(corlib, "System", "ValueType")
	require.NoError(t, err)
	_, err = md.AddTypeDef(0, "", "<Module>", nil)
	require.NoError(t, err)
	point, err := md.AddTypeDef(0x00100109, "Demo", "Point", valueType)
	require.NoError(t, err)
	for _, name := range []string{"X", "Y"} {
		_, err = md.AddField(point, 0x0006, name, &signature.FieldSignature{Type: md.TypeSystem().Int32})
		require.NoError(t, err)
	}

	return md
}

func TestRebuild_Canonical(t *testing.T) {
	md := buildModel(t)
	_, err := md.Rebuild()
	require.NoError(t, err)
	data, err := md.Bytes()
	require.NoError(t, err)

	again, err := Rebuild(data)
	require.NoError(t, err)
	require.Equal(t, data, again)
}

func TestLoad(t *testing.T) {
	md := buildModel(t)
	_, err := md.Rebuild()
	require.NoError(t, err)
	data, err := md.Bytes()
	require.NoError(t, err)

	loaded, err := Load(data)
	require.NoError(t, err)

	row, err := loaded.ResolveMember(format.TableField.Token(2))
	require.NoError(t, err)
	require.Equal(t, "Y", row.Cell(1).Text())

	_, err = Load(data[:8])
	require.Error(t, err)
	_, err = Rebuild([]byte("not metadata at all, not even close"))
	require.ErrorIs(t, err, errs.ErrInvalidMetadataSignature)
}

func TestSnapshotRestore(t *testing.T) {
	md := buildModel(t)

	snap, err := Snapshot(md, snapshot.WithCompression(format.CompressionS2))
	require.NoError(t, err)

	restored, err := Restore(snap)
	require.NoError(t, err)
	tbl, ok := restored.Tables().Table(format.TableField)
	require.True(t, ok)
	require.Equal(t, 2, tbl.Len())

	snap[len(snap)-1] ^= 0xFF
	_, err = Restore(snap)
	require.Error(t, err)
}
