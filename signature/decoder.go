package signature

import (
	"fmt"

	"github.com/arloliu/clrmeta/encoding"
	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
)

// BlobSource provides blob contents by heap offset. *heap.BlobHeap satisfies it.
type BlobSource interface {
	GetBlob(offset uint32) ([]byte, error)
}

// MaxArrayRank is the largest array rank the runtime accepts.
const MaxArrayRank = 32

// typeDefOrRefTables is the table order of a TypeDefOrRefOrSpecEncoded value.
var typeDefOrRefTables = [...]format.TableType{format.TableTypeDef, format.TableTypeRef, format.TableTypeSpec}

// Decoder decodes signature blobs of one loaded module.
//
// The generic context is passed explicitly to every call; the decoder holds
// no per-call state and may be used from several goroutines.
type Decoder struct {
	blobs    BlobSource
	types    *TypeSystem
	resolver Resolver
}

// NewDecoder creates a decoder reading blobs from blobs. resolver may be nil,
// in which case Class and ValueType tokens are not validated.
func NewDecoder(blobs BlobSource, types *TypeSystem, resolver Resolver) *Decoder {
	if types == nil {
		types = NewTypeSystem()
	}

	return &Decoder{blobs: blobs, types: types, resolver: resolver}
}

// TypeSystem returns the primitive singletons shared by decoded signatures.
func (d *Decoder) TypeSystem() *TypeSystem {
	return d.types
}

func (d *Decoder) reader(offset uint32) (*encoding.BlobReader, error) {
	b, err := d.blobs.GetBlob(offset)
	if err != nil {
		return nil, err
	}

	return encoding.NewBlobReader(b), nil
}

func (d *Decoder) readType(r *encoding.BlobReader, ctx GenericContext) (TypeReference, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	return d.ReadTypeReference(r, ctx, format.ElementType(tag))
}

// ReadTypeReference decodes the type that starts with tag, reading any
// further bytes the tag needs from r.
//
// Parameters:
//   - r: Reader positioned just after the tag byte
//   - ctx: Generic context for Var and MVar, may be nil
//   - tag: Element type tag already read from r
//
// Returns:
//   - TypeReference: Decoded type tree
//   - error: ErrMalformedEncoding on truncation, ErrUnsupportedElementType for
//     unknown tags, ErrUnresolvedReference for tokens the resolver rejects
func (d *Decoder) ReadTypeReference(r *encoding.BlobReader, ctx GenericContext, tag format.ElementType) (TypeReference, error) {
	if p, ok := d.types.Primitive(tag); ok {
		return p, nil
	}

	switch tag {
	case format.ElementPtr:
		elem, err := d.readType(r, ctx)
		if err != nil {
			return nil, err
		}
		return &PointerType{Element: elem}, nil

	case format.ElementByRef:
		elem, err := d.readType(r, ctx)
		if err != nil {
			return nil, err
		}
		return &ByRefType{Element: elem}, nil

	case format.ElementPinned:
		elem, err := d.readType(r, ctx)
		if err != nil {
			return nil, err
		}
		return &PinnedType{Element: elem}, nil

	case format.ElementSzArray:
		elem, err := d.readType(r, ctx)
		if err != nil {
			return nil, err
		}
		return &SzArrayType{Element: elem}, nil

	case format.ElementArray:
		a, err := d.readArrayType(r, ctx)
		if err != nil {
			return nil, err
		}
		return a, nil

	case format.ElementVar, format.ElementMVar:
		index, err := r.ReadCompressedUInt32()
		if err != nil {
			return nil, err
		}
		return resolveGenericParam(ctx, tag, index), nil

	case format.ElementClass:
		t, err := d.readTypeToken(r, false)
		if err != nil {
			return nil, err
		}
		return t, nil

	case format.ElementValueType:
		t, err := d.readTypeToken(r, false)
		if err != nil {
			return nil, err
		}
		return t.AsValueType(), nil

	case format.ElementGenericInst:
		g, err := d.readGenericInstance(r, ctx)
		if err != nil {
			return nil, err
		}
		return g, nil

	case format.ElementCModReqd, format.ElementCModOpt:
		mod, err := d.readTypeToken(r, false)
		if err != nil {
			return nil, err
		}
		elem, err := d.readType(r, ctx)
		if err != nil {
			return nil, err
		}
		return &ModifierType{Required: tag == format.ElementCModReqd, Modifier: mod, Element: elem}, nil

	case format.ElementFnPtr:
		flag, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		sig, err := d.readMethodBody(r, ctx, CallingConvention(flag))
		if err != nil {
			return nil, err
		}
		return &FunctionPointerType{Signature: sig}, nil

	default:
		return nil, fmt.Errorf("%w: %s at offset %d", errs.ErrUnsupportedElementType, tag, r.Offset()-1)
	}
}

// readTypeToken decodes a TypeDefOrRefOrSpecEncoded value.
func (d *Decoder) readTypeToken(r *encoding.BlobReader, valueType bool) (*DefOrRefType, error) {
	coded, err := r.ReadCompressedUInt32()
	if err != nil {
		return nil, err
	}

	tag := coded & 0x3
	rid := coded >> 2
	if int(tag) >= len(typeDefOrRefTables) || rid == 0 {
		return nil, fmt.Errorf("%w: TypeDefOrRef value 0x%x", errs.ErrUnresolvedReference, coded)
	}

	table := typeDefOrRefTables[tag]
	if d.resolver != nil {
		if _, _, err := d.resolver.TypeName(table, rid); err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %w", errs.ErrUnresolvedReference, table, rid, err)
		}
	}

	return NewDefOrRefType(table, rid, valueType, d.resolver), nil
}

func (d *Decoder) readArrayType(r *encoding.BlobReader, ctx GenericContext) (*ArrayType, error) {
	elem, err := d.readType(r, ctx)
	if err != nil {
		return nil, err
	}

	rank, err := r.ReadCompressedUInt32()
	if err != nil {
		return nil, err
	}

	sizes, err := readCountedList(r, r.ReadCompressedUInt32)
	if err != nil {
		return nil, err
	}
	lowers, err := readCountedList(r, r.ReadCompressedInt32)
	if err != nil {
		return nil, err
	}
	if rank > MaxArrayRank {
		return nil, fmt.Errorf("%w: array rank %d", errs.ErrMalformedEncoding, rank)
	}

	dims := make([]ArrayDimension, rank)
	for i := range dims {
		if i < len(lowers) {
			lower := lowers[i]
			dims[i].LowerBound = &lower
			if i < len(sizes) {
				upper := lower + int32(sizes[i]) - 1 //nolint:gosec
				dims[i].UpperBound = &upper
			}
		}
	}

	return &ArrayType{Element: elem, Rank: int(rank), Dimensions: dims}, nil
}

func readCountedList[T any](r *encoding.BlobReader, read func() (T, error)) ([]T, error) {
	n, err := r.ReadCompressedUInt32()
	if err != nil {
		return nil, err
	}
	if int(n) > r.Remaining() {
		return nil, fmt.Errorf("%w: list of %d entries exceeds blob", errs.ErrMalformedEncoding, n)
	}

	out := make([]T, n)
	for i := range out {
		if out[i], err = read(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (d *Decoder) readGenericInstance(r *encoding.BlobReader, ctx GenericContext) (*GenericInstanceType, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	valueType := format.ElementType(kind) == format.ElementValueType

	base, err := d.readTypeToken(r, valueType)
	if err != nil {
		return nil, err
	}

	args, err := d.readTypeList(r, ctx)
	if err != nil {
		return nil, err
	}

	return &GenericInstanceType{Base: base, Arguments: args, valueType: valueType}, nil
}

func (d *Decoder) readTypeList(r *encoding.BlobReader, ctx GenericContext) ([]TypeReference, error) {
	return readCountedList(r, func() (TypeReference, error) {
		return d.readType(r, ctx)
	})
}

// ReadMemberRefSignature decodes the signature of a MemberRef row: a field
// signature when the first byte is 0x06, otherwise a method signature.
func (d *Decoder) ReadMemberRefSignature(offset uint32, ctx GenericContext) (MemberSignature, error) {
	r, err := d.reader(offset)
	if err != nil {
		return nil, err
	}

	flag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	if CallingConvention(flag) == ConvField {
		t, err := d.readType(r, ctx)
		if err != nil {
			return nil, err
		}
		return &FieldSignature{Type: t}, nil
	}

	m, err := d.readMethodBody(r, ctx, CallingConvention(flag))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ReadFieldSignature decodes a Field row signature.
func (d *Decoder) ReadFieldSignature(offset uint32, ctx GenericContext) (*FieldSignature, error) {
	sig, err := d.ReadMemberRefSignature(offset, ctx)
	if err != nil {
		return nil, err
	}
	f, ok := sig.(*FieldSignature)
	if !ok {
		return nil, fmt.Errorf("%w: blob 0x%x is a method signature", errs.ErrInvalidSignatureKind, offset)
	}

	return f, nil
}

// ReadMethodSignature decodes a Method row signature.
func (d *Decoder) ReadMethodSignature(offset uint32, ctx GenericContext) (*MethodSignature, error) {
	sig, err := d.ReadMemberRefSignature(offset, ctx)
	if err != nil {
		return nil, err
	}
	m, ok := sig.(*MethodSignature)
	if !ok {
		return nil, fmt.Errorf("%w: blob 0x%x is a field signature", errs.ErrInvalidSignatureKind, offset)
	}

	return m, nil
}

func (d *Decoder) readMethodBody(r *encoding.BlobReader, ctx GenericContext, flag CallingConvention) (*MethodSignature, error) {
	conv := flag & ConvMask
	if conv > ConvVarArg {
		return nil, fmt.Errorf("%w: calling convention 0x%02x", errs.ErrInvalidSignatureKind, uint8(flag))
	}

	sig := &MethodSignature{
		CallingConvention: conv,
		HasThis:           flag&FlagHasThis != 0,
		ExplicitThis:      flag&FlagExplicitThis != 0,
		SentinelIndex:     -1,
	}

	var err error
	if flag&FlagGeneric != 0 {
		if sig.GenericParameterCount, err = r.ReadCompressedUInt32(); err != nil {
			return nil, err
		}
	}

	count, err := r.ReadCompressedUInt32()
	if err != nil {
		return nil, err
	}
	if int(count) > r.Remaining() {
		return nil, fmt.Errorf("%w: %d parameters exceed blob", errs.ErrMalformedEncoding, count)
	}

	if sig.ReturnType, err = d.readType(r, ctx); err != nil {
		return nil, err
	}

	sig.Parameters = make([]TypeReference, 0, count)
	for i := uint32(0); i < count; i++ {
		tag, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if format.ElementType(tag) == format.ElementSentinel {
			sig.SentinelIndex = int(i)
			if tag, err = r.ReadByte(); err != nil {
				return nil, err
			}
		}

		p, err := d.ReadTypeReference(r, ctx, format.ElementType(tag))
		if err != nil {
			return nil, err
		}
		sig.Parameters = append(sig.Parameters, p)
	}

	return sig, nil
}

// ReadPropertySignature decodes a Property row signature. The first byte must
// carry the property flag 0x08.
func (d *Decoder) ReadPropertySignature(offset uint32, ctx GenericContext) (*PropertySignature, error) {
	r, err := d.reader(offset)
	if err != nil {
		return nil, err
	}

	flag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if CallingConvention(flag)&ConvProperty == 0 {
		return nil, fmt.Errorf("%w: property marker 0x%02x", errs.ErrInvalidSignatureKind, flag)
	}

	count, err := r.ReadCompressedUInt32()
	if err != nil {
		return nil, err
	}
	if int(count) > r.Remaining() {
		return nil, fmt.Errorf("%w: %d parameters exceed blob", errs.ErrMalformedEncoding, count)
	}

	sig := &PropertySignature{HasThis: CallingConvention(flag)&FlagHasThis != 0}
	if sig.ReturnType, err = d.readType(r, ctx); err != nil {
		return nil, err
	}

	sig.Parameters = make([]TypeReference, count)
	for i := range sig.Parameters {
		if sig.Parameters[i], err = d.readType(r, ctx); err != nil {
			return nil, err
		}
	}

	return sig, nil
}

// ReadVariableSignature decodes a local variable signature (marker 0x07).
// A signature declaring no locals yields a nil slice.
func (d *Decoder) ReadVariableSignature(offset uint32, ctx GenericContext) ([]VariableDefinition, error) {
	r, err := d.reader(offset)
	if err != nil {
		return nil, err
	}

	marker, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if CallingConvention(marker) != ConvLocalSig {
		return nil, fmt.Errorf("%w: local signature marker 0x%02x", errs.ErrInvalidSignatureKind, marker)
	}

	types, err := d.readTypeList(r, ctx)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return nil, nil
	}

	vars := make([]VariableDefinition, len(types))
	for i, t := range types {
		vars[i] = VariableDefinition{Index: i, Type: t}
	}

	return vars, nil
}

// ReadTypeSignature decodes a stand-alone type, as stored by TypeSpec rows.
func (d *Decoder) ReadTypeSignature(offset uint32, ctx GenericContext) (TypeReference, error) {
	r, err := d.reader(offset)
	if err != nil {
		return nil, err
	}

	return d.readType(r, ctx)
}

// ReadGenericArgumentsSignature decodes a MethodSpec instantiation (marker 0x0A).
func (d *Decoder) ReadGenericArgumentsSignature(offset uint32, ctx GenericContext) ([]TypeReference, error) {
	r, err := d.reader(offset)
	if err != nil {
		return nil, err
	}

	marker, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if CallingConvention(marker) != ConvGenericInst {
		return nil, fmt.Errorf("%w: generic instantiation marker 0x%02x", errs.ErrInvalidSignatureKind, marker)
	}

	return d.readTypeList(r, ctx)
}
