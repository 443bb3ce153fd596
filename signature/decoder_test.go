package signature

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
	"github.com/arloliu/clrmeta/heap"
)

type rowKey struct {
	table format.TableType
	rid   uint32
}

type fakeResolver map[rowKey][2]string

func (f fakeResolver) TypeName(table format.TableType, rid uint32) (string, string, error) {
	n, ok := f[rowKey{table, rid}]
	if !ok {
		return "", "", fmt.Errorf("%w: %s row %d", errs.ErrUnresolvedReference, table, rid)
	}

	return n[0], n[1], nil
}

func testResolver() fakeResolver {
	return fakeResolver{
		{format.TableTypeRef, 1}: {"System.Collections.Generic", "KeyValuePair`2"},
		{format.TableTypeRef, 2}: {"System", "Type"},
		{format.TableTypeRef, 3}: {"System.Runtime.CompilerServices", "IsVolatile"},
		{format.TableTypeDef, 1}: {"", "<Module>"},
		{format.TableTypeDef, 2}: {"Demo", "Point"},
	}
}

// newTestDecoder stores blobs in a fresh heap and returns their offsets.
func newTestDecoder(t *testing.T, blobs ...[]byte) (*Decoder, []uint32) {
	t.Helper()

	h := heap.NewBlobHeap()
	offsets := make([]uint32, len(blobs))
	for i, b := range blobs {
		off, err := h.GetBlobIndex(b)
		require.NoError(t, err)
		offsets[i] = off
	}

	return NewDecoder(h, NewTypeSystem(), testResolver()), offsets
}

func TestReadTypeSignature_Array(t *testing.T) {
	// int32[5...7,]: rank 2, one size (3), one lower bound (5)
	d, offs := newTestDecoder(t, []byte{0x14, 0x08, 0x02, 0x01, 0x03, 0x01, 0x0A})

	typ, err := d.ReadTypeSignature(offs[0], nil)
	require.NoError(t, err)

	arr, ok := typ.(*ArrayType)
	require.True(t, ok)
	require.Equal(t, 2, arr.Rank)
	require.Len(t, arr.Dimensions, 2)
	require.Same(t, d.TypeSystem().Int32, arr.Element)

	require.NotNil(t, arr.Dimensions[0].LowerBound)
	require.NotNil(t, arr.Dimensions[0].UpperBound)
	require.Equal(t, int32(5), *arr.Dimensions[0].LowerBound)
	require.Equal(t, int32(7), *arr.Dimensions[0].UpperBound)
	require.Nil(t, arr.Dimensions[1].LowerBound)
	require.Nil(t, arr.Dimensions[1].UpperBound)
	require.Equal(t, "System.Int32[5...7,]", arr.FullName())
}

func TestReadTypeSignature_SizeWithoutLowerBound(t *testing.T) {
	// rank 1, one size, no lower bounds: no upper bound either
	d, offs := newTestDecoder(t, []byte{0x14, 0x08, 0x01, 0x01, 0x04, 0x00})

	typ, err := d.ReadTypeSignature(offs[0], nil)
	require.NoError(t, err)
	arr := typ.(*ArrayType)
	require.Len(t, arr.Dimensions, 1)
	require.Nil(t, arr.Dimensions[0].LowerBound)
	require.Nil(t, arr.Dimensions[0].UpperBound)
}

func TestReadTypeSignature_GenericInstance(t *testing.T) {
	// valuetype KeyValuePair`2<int32, string>
	d, offs := newTestDecoder(t, []byte{0x15, 0x11, 0x05, 0x02, 0x08, 0x0E})

	typ, err := d.ReadTypeSignature(offs[0], nil)
	require.NoError(t, err)

	inst, ok := typ.(*GenericInstanceType)
	require.True(t, ok)
	require.True(t, inst.IsValueType())
	require.Len(t, inst.Arguments, 2)
	require.Same(t, d.TypeSystem().Int32, inst.Arguments[0])
	require.Same(t, d.TypeSystem().String, inst.Arguments[1])

	base, ok := inst.Base.(*DefOrRefType)
	require.True(t, ok)
	require.Equal(t, format.TableTypeRef, base.Table)
	require.Equal(t, uint32(1), base.RID)
	require.Equal(t, "System.Collections.Generic.KeyValuePair`2<System.Int32,System.String>", inst.FullName())
}

func TestReadTypeSignature_ClassInstance(t *testing.T) {
	d, offs := newTestDecoder(t, []byte{0x15, 0x12, 0x05, 0x01, 0x1C})

	typ, err := d.ReadTypeSignature(offs[0], nil)
	require.NoError(t, err)
	require.False(t, typ.IsValueType())
}

func TestReadTypeReference_ValueTypeDoesNotAlias(t *testing.T) {
	// class Demo.Point, then valuetype Demo.Point
	d, offs := newTestDecoder(t, []byte{0x12, 0x08}, []byte{0x11, 0x08})

	cls, err := d.ReadTypeSignature(offs[0], nil)
	require.NoError(t, err)
	val, err := d.ReadTypeSignature(offs[1], nil)
	require.NoError(t, err)

	require.False(t, cls.IsValueType())
	require.True(t, val.IsValueType())
	require.Equal(t, format.ElementValueType, val.ElementType())
	require.Equal(t, "Demo.Point", val.FullName())

	again, err := d.ReadTypeSignature(offs[0], nil)
	require.NoError(t, err)
	require.False(t, again.IsValueType(), "decoding a valuetype must not mark other references")
}

func TestReadTypeReference_Unresolved(t *testing.T) {
	// TypeRef row 9 does not exist
	d, offs := newTestDecoder(t, []byte{0x12, 0x25})

	_, err := d.ReadTypeSignature(offs[0], nil)
	require.ErrorIs(t, err, errs.ErrUnresolvedReference)
}

func TestReadTypeReference_Wrappers(t *testing.T) {
	d, offs := newTestDecoder(t,
		[]byte{0x0F, 0x08},                   // int32*
		[]byte{0x10, 0x0E},                   // string&
		[]byte{0x1D, 0x1D, 0x05},             // uint8[][]
		[]byte{0x20, 0x0D, 0x08},             // int32 modopt(IsVolatile)
		[]byte{0x1B, 0x00, 0x01, 0x01, 0x08}, // method void *(int32)
	)

	ptr, err := d.ReadTypeSignature(offs[0], nil)
	require.NoError(t, err)
	require.Equal(t, "System.Int32*", ptr.FullName())

	ref, err := d.ReadTypeSignature(offs[1], nil)
	require.NoError(t, err)
	require.IsType(t, &ByRefType{}, ref)

	jagged, err := d.ReadTypeSignature(offs[2], nil)
	require.NoError(t, err)
	require.Equal(t, "System.Byte[][]", jagged.FullName())

	mod, err := d.ReadTypeSignature(offs[3], nil)
	require.NoError(t, err)
	m := mod.(*ModifierType)
	require.False(t, m.Required)
	require.Same(t, d.TypeSystem().Int32, m.Element)

	fn, err := d.ReadTypeSignature(offs[4], nil)
	require.NoError(t, err)
	fp := fn.(*FunctionPointerType)
	require.Len(t, fp.Signature.Parameters, 1)
}

func TestReadTypeReference_GenericParams(t *testing.T) {
	d, offs := newTestDecoder(t, []byte{0x13, 0x01}, []byte{0x1E, 0x00}, []byte{0x13, 0x05})

	ctx := &StaticContext{
		Type:   []TypeReference{&GenericParamType{Kind: format.ElementVar, Index: 0, Name: "TKey", Resolved: true}, d.TypeSystem().Int64},
		Method: []TypeReference{&GenericParamType{Kind: format.ElementMVar, Index: 0, Name: "TResult", Resolved: true}},
	}

	v, err := d.ReadTypeSignature(offs[0], ctx)
	require.NoError(t, err)
	require.Same(t, d.TypeSystem().Int64, v)

	mv, err := d.ReadTypeSignature(offs[1], ctx)
	require.NoError(t, err)
	require.Equal(t, "TResult", mv.FullName())

	t.Run("out of range yields placeholder", func(t *testing.T) {
		p, err := d.ReadTypeSignature(offs[2], ctx)
		require.NoError(t, err)
		gp := p.(*GenericParamType)
		require.False(t, gp.Resolved)
		require.Equal(t, uint32(5), gp.Index)
		require.Equal(t, "!5", gp.FullName())
	})

	t.Run("no context yields placeholder", func(t *testing.T) {
		p, err := d.ReadTypeSignature(offs[1], nil)
		require.NoError(t, err)
		require.Equal(t, "!!0", p.FullName())
	})
}

func TestReadTypeReference_Unsupported(t *testing.T) {
	d, offs := newTestDecoder(t, []byte{0x17})
	_, err := d.ReadTypeSignature(offs[0], nil)
	require.ErrorIs(t, err, errs.ErrUnsupportedElementType)
}

func TestReadMemberRefSignature_Method(t *testing.T) {
	// instance generic<1> void (int32, string)
	d, offs := newTestDecoder(t, []byte{0x30, 0x01, 0x02, 0x01, 0x08, 0x0E})

	sig, err := d.ReadMemberRefSignature(offs[0], nil)
	require.NoError(t, err)

	m, ok := sig.(*MethodSignature)
	require.True(t, ok)
	require.True(t, m.HasThis)
	require.False(t, m.ExplicitThis)
	require.Equal(t, ConvDefault, m.CallingConvention)
	require.Equal(t, uint32(1), m.GenericParameterCount)
	require.Same(t, d.TypeSystem().Void, m.ReturnType)
	require.Len(t, m.Parameters, 2)
	require.Same(t, d.TypeSystem().Int32, m.Parameters[0])
	require.Same(t, d.TypeSystem().String, m.Parameters[1])
	require.Equal(t, -1, m.SentinelIndex)
}

func TestReadMemberRefSignature_Field(t *testing.T) {
	// the trailing bytes are ignored
	d, offs := newTestDecoder(t, []byte{0x06, 0x08, 0xFF, 0xFF})

	sig, err := d.ReadMemberRefSignature(offs[0], nil)
	require.NoError(t, err)
	f, ok := sig.(*FieldSignature)
	require.True(t, ok)
	require.Same(t, d.TypeSystem().Int32, f.Type)

	_, err = d.ReadMethodSignature(offs[0], nil)
	require.ErrorIs(t, err, errs.ErrInvalidSignatureKind)
}

func TestReadMemberRefSignature_VarArg(t *testing.T) {
	// vararg void (int32, ..., string)
	d, offs := newTestDecoder(t, []byte{0x05, 0x02, 0x01, 0x08, 0x41, 0x0E})

	m, err := d.ReadMethodSignature(offs[0], nil)
	require.NoError(t, err)
	require.Equal(t, ConvVarArg, m.CallingConvention)
	require.Equal(t, 1, m.SentinelIndex)
	require.Len(t, m.Parameters, 2)
}

func TestReadMemberRefSignature_Invalid(t *testing.T) {
	d, offs := newTestDecoder(t, []byte{0x0B, 0x00, 0x01}, []byte{0x00, 0x05, 0x01})

	_, err := d.ReadMemberRefSignature(offs[0], nil)
	require.ErrorIs(t, err, errs.ErrInvalidSignatureKind)

	_, err = d.ReadMemberRefSignature(offs[1], nil)
	require.ErrorIs(t, err, errs.ErrMalformedEncoding)
}

func TestReadPropertySignature(t *testing.T) {
	d, offs := newTestDecoder(t, []byte{0x28, 0x01, 0x0E, 0x08}, []byte{0x06, 0x08})

	p, err := d.ReadPropertySignature(offs[0], nil)
	require.NoError(t, err)
	require.True(t, p.HasThis)
	require.Same(t, d.TypeSystem().String, p.ReturnType)
	require.Len(t, p.Parameters, 1)

	_, err = d.ReadPropertySignature(offs[1], nil)
	require.ErrorIs(t, err, errs.ErrInvalidSignatureKind)
}

func TestReadVariableSignature(t *testing.T) {
	d, offs := newTestDecoder(t,
		[]byte{0x07, 0x02, 0x08, 0x45, 0x10, 0x05},
		[]byte{0x07, 0x00},
		[]byte{0x06, 0x00},
	)

	vars, err := d.ReadVariableSignature(offs[0], nil)
	require.NoError(t, err)
	require.Len(t, vars, 2)
	require.Equal(t, 0, vars[0].Index)
	require.Equal(t, 1, vars[1].Index)
	require.Equal(t, "System.Byte& pinned", vars[1].Type.FullName())

	vars, err = d.ReadVariableSignature(offs[1], nil)
	require.NoError(t, err)
	require.Nil(t, vars)

	_, err = d.ReadVariableSignature(offs[2], nil)
	require.ErrorIs(t, err, errs.ErrInvalidSignatureKind)
}

func TestReadGenericArgumentsSignature(t *testing.T) {
	d, offs := newTestDecoder(t, []byte{0x0A, 0x02, 0x08, 0x1C}, []byte{0x07, 0x00})

	args, err := d.ReadGenericArgumentsSignature(offs[0], nil)
	require.NoError(t, err)
	require.Equal(t, []TypeReference{d.TypeSystem().Int32, d.TypeSystem().Object}, args)

	_, err = d.ReadGenericArgumentsSignature(offs[1], nil)
	require.ErrorIs(t, err, errs.ErrInvalidSignatureKind)
}

func TestReadConstantValue(t *testing.T) {
	d, offs := newTestDecoder(t,
		[]byte{0x01, 0x00, 0x00, 0x00},
		[]byte{'h', 0x00, 'i', 0x00},
		[]byte{0xFE, 0xFF},
		[]byte{'o', 0x00, 'k', 0x00, 0x01},
	)

	v, err := d.ReadConstantValue(format.ElementBoolean, offs[0])
	require.NoError(t, err)
	require.Equal(t, true, v)

	v, err = d.ReadConstantValue(format.ElementI4, offs[0])
	require.NoError(t, err)
	require.Equal(t, int32(1), v)

	v, err = d.ReadConstantValue(format.ElementString, offs[1])
	require.NoError(t, err)
	require.Equal(t, "hi", v)

	// a trailing odd byte is dropped
	v, err = d.ReadConstantValue(format.ElementString, offs[3])
	require.NoError(t, err)
	require.Equal(t, "ok", v)

	v, err = d.ReadConstantValue(format.ElementU2, offs[2])
	require.NoError(t, err)
	require.Equal(t, uint16(0xFFFE), v)

	v, err = d.ReadConstantValue(format.ElementI2, offs[2])
	require.NoError(t, err)
	require.Equal(t, int16(-2), v)

	v, err = d.ReadConstantValue(format.ElementString, 0)
	require.NoError(t, err)
	require.Equal(t, "", v)

	_, err = d.ReadConstantValue(format.ElementClass, offs[0])
	require.ErrorIs(t, err, errs.ErrUnsupportedConstantType)

	_, err = d.ReadConstantValue(format.ElementI8, offs[0])
	require.ErrorIs(t, err, errs.ErrMalformedEncoding)
}

func TestReadCustomAttributeSignature(t *testing.T) {
	ts := NewTypeSystem()
	systemType := NewDefOrRefType(format.TableTypeRef, 2, false, testResolver())
	ctor := &MethodSignature{
		HasThis:       true,
		ReturnType:    ts.Void,
		SentinelIndex: -1,
		Parameters: []TypeReference{
			ts.String,
			ts.String,
			ts.UInt16,
			&SzArrayType{Element: ts.Int32},
			systemType,
			ts.Object,
		},
	}

	blob := []byte{
		0x01, 0x00, // prolog
		0x02, 'o', 'k',
		0xFF,       // null string
		0xFE, 0xFF, // uint16 0xFFFE
		0x02, 0x00, 0x07, 0x00, 0x00, 0x00, 0xF9, 0xFF, 0xFF, 0xFF, // int32[]{7, -7}
		0x03, 'I', 'n', 't', // System.Type argument
		0x02, 0x01, // boxed bool true
		0x00, 0x00, // named argument count
	}
	d, offs := newTestDecoder(t, blob, []byte{0x02, 0x00})

	sig, err := d.ReadCustomAttributeSignature(offs[0], ctor)
	require.NoError(t, err)
	require.Empty(t, sig.NamedArgs)
	require.Len(t, sig.FixedArgs, 6)
	require.Equal(t, "ok", sig.FixedArgs[0].Value)
	require.Equal(t, "", sig.FixedArgs[1].Value)
	require.Equal(t, uint16(0xFFFE), sig.FixedArgs[2].Value)
	require.Equal(t, []any{int32(7), int32(-7)}, sig.FixedArgs[3].Value)
	require.Equal(t, "Int", sig.FixedArgs[4].Value)
	require.Equal(t, true, sig.FixedArgs[5].Value)

	_, err = d.ReadCustomAttributeSignature(offs[1], ctor)
	require.ErrorIs(t, err, errs.ErrInvalidSignatureKind)

	empty, err := d.ReadCustomAttributeSignature(offs[0], nil)
	require.NoError(t, err)
	require.Empty(t, empty.FixedArgs)
}

func TestReadCustomAttributeSignature_EnumArgument(t *testing.T) {
	ts := NewTypeSystem()
	ctor := &MethodSignature{
		ReturnType:    ts.Void,
		SentinelIndex: -1,
		Parameters:    []TypeReference{NewDefOrRefType(format.TableTypeDef, 2, true, testResolver())},
	}
	d, offs := newTestDecoder(t, []byte{0x01, 0x00, 0x01, 0x00, 0x00, 0x00})

	_, err := d.ReadCustomAttributeSignature(offs[0], ctor)
	require.ErrorIs(t, err, errs.ErrUnsupportedElementType)
}

func BenchmarkReadMemberRefSignature(b *testing.B) {
	h := heap.NewBlobHeap()
	off, _ := h.GetBlobIndex([]byte{0x20, 0x03, 0x01, 0x08, 0x0E, 0x1D, 0x05})
	d := NewDecoder(h, nil, nil)

	for b.Loop() {
		_, _ = d.ReadMemberRefSignature(off, nil)
	}
}
