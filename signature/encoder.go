package signature

import (
	"fmt"
	"math"

	"github.com/arloliu/clrmeta/encoding"
	"github.com/arloliu/clrmeta/endian"
	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
)

var le = endian.GetLittleEndianEngine()

// AppendTypeReference appends the encoded form of t to dst.
func AppendTypeReference(dst []byte, t TypeReference) ([]byte, error) {
	switch v := t.(type) {
	case *PrimitiveType:
		return append(dst, byte(v.elem)), nil

	case *DefOrRefType:
		dst = append(dst, byte(v.ElementType()))
		return appendTypeToken(dst, v)

	case *PointerType:
		return AppendTypeReference(append(dst, byte(format.ElementPtr)), v.Element)

	case *ByRefType:
		return AppendTypeReference(append(dst, byte(format.ElementByRef)), v.Element)

	case *PinnedType:
		return AppendTypeReference(append(dst, byte(format.ElementPinned)), v.Element)

	case *SzArrayType:
		return AppendTypeReference(append(dst, byte(format.ElementSzArray)), v.Element)

	case *ArrayType:
		return appendArrayType(dst, v)

	case *GenericParamType:
		return encoding.AppendCompressedUInt32(append(dst, byte(v.Kind)), v.Index)

	case *GenericInstanceType:
		base, ok := v.Base.(*DefOrRefType)
		if !ok {
			return dst, fmt.Errorf("%w: generic instance base %T", errs.ErrUnsupportedElementType, v.Base)
		}
		kind := format.ElementClass
		if v.valueType {
			kind = format.ElementValueType
		}
		dst = append(dst, byte(format.ElementGenericInst), byte(kind))
		dst, err := appendTypeToken(dst, base)
		if err != nil {
			return dst, err
		}
		return appendTypeList(dst, v.Arguments)

	case *ModifierType:
		mod, ok := v.Modifier.(*DefOrRefType)
		if !ok {
			return dst, fmt.Errorf("%w: modifier %T", errs.ErrUnsupportedElementType, v.Modifier)
		}
		dst, err := appendTypeToken(append(dst, byte(v.ElementType())), mod)
		if err != nil {
			return dst, err
		}
		return AppendTypeReference(dst, v.Element)

	case *FunctionPointerType:
		return appendMethodSignature(append(dst, byte(format.ElementFnPtr)), v.Signature)

	default:
		return dst, fmt.Errorf("%w: cannot encode %T", errs.ErrUnsupportedElementType, t)
	}
}

func appendTypeToken(dst []byte, t *DefOrRefType) ([]byte, error) {
	for tag, table := range typeDefOrRefTables {
		if table == t.Table {
			return encoding.AppendCompressedUInt32(dst, t.RID<<2|uint32(tag)) //nolint:gosec
		}
	}

	return dst, fmt.Errorf("%w: %s is not a TypeDefOrRef table", errs.ErrUnresolvedReference, t.Table)
}

func appendTypeList(dst []byte, types []TypeReference) ([]byte, error) {
	dst, err := encoding.AppendCompressedUInt32(dst, uint32(len(types))) //nolint:gosec
	if err != nil {
		return dst, err
	}
	for _, t := range types {
		if dst, err = AppendTypeReference(dst, t); err != nil {
			return dst, err
		}
	}

	return dst, nil
}

func appendArrayType(dst []byte, a *ArrayType) ([]byte, error) {
	dst, err := AppendTypeReference(append(dst, byte(format.ElementArray)), a.Element)
	if err != nil {
		return dst, err
	}

	var sizes []uint32
	var lowers []int32
	for _, d := range a.Dimensions {
		if d.LowerBound == nil {
			break
		}
		lowers = append(lowers, *d.LowerBound)
		if d.UpperBound != nil && len(sizes) == len(lowers)-1 {
			sizes = append(sizes, uint32(*d.UpperBound-*d.LowerBound+1)) //nolint:gosec
		}
	}

	if dst, err = encoding.AppendCompressedUInt32(dst, uint32(a.Rank)); err != nil { //nolint:gosec
		return dst, err
	}
	if dst, err = encoding.AppendCompressedUInt32(dst, uint32(len(sizes))); err != nil { //nolint:gosec
		return dst, err
	}
	for _, s := range sizes {
		if dst, err = encoding.AppendCompressedUInt32(dst, s); err != nil {
			return dst, err
		}
	}
	if dst, err = encoding.AppendCompressedUInt32(dst, uint32(len(lowers))); err != nil { //nolint:gosec
		return dst, err
	}
	for _, l := range lowers {
		if dst, err = encoding.AppendCompressedInt32(dst, l); err != nil {
			return dst, err
		}
	}

	return dst, nil
}

// EncodeFieldSignature encodes a field signature blob.
func EncodeFieldSignature(sig *FieldSignature) ([]byte, error) {
	return AppendTypeReference([]byte{byte(ConvField)}, sig.Type)
}

// EncodeMethodSignature encodes a method signature blob.
func EncodeMethodSignature(sig *MethodSignature) ([]byte, error) {
	return appendMethodSignature(nil, sig)
}

func appendMethodSignature(dst []byte, sig *MethodSignature) ([]byte, error) {
	flag := sig.CallingConvention & ConvMask
	if sig.HasThis {
		flag |= FlagHasThis
	}
	if sig.ExplicitThis {
		flag |= FlagExplicitThis
	}
	if sig.GenericParameterCount > 0 {
		flag |= FlagGeneric
	}
	dst = append(dst, byte(flag))

	var err error
	if sig.GenericParameterCount > 0 {
		if dst, err = encoding.AppendCompressedUInt32(dst, sig.GenericParameterCount); err != nil {
			return dst, err
		}
	}
	if dst, err = encoding.AppendCompressedUInt32(dst, uint32(len(sig.Parameters))); err != nil { //nolint:gosec
		return dst, err
	}
	if dst, err = AppendTypeReference(dst, sig.ReturnType); err != nil {
		return dst, err
	}
	for i, p := range sig.Parameters {
		if i == sig.SentinelIndex {
			dst = append(dst, byte(format.ElementSentinel))
		}
		if dst, err = AppendTypeReference(dst, p); err != nil {
			return dst, err
		}
	}

	return dst, nil
}

// EncodePropertySignature encodes a property signature blob.
func EncodePropertySignature(sig *PropertySignature) ([]byte, error) {
	flag := ConvProperty
	if sig.HasThis {
		flag |= FlagHasThis
	}

	dst, err := encoding.AppendCompressedUInt32([]byte{byte(flag)}, uint32(len(sig.Parameters))) //nolint:gosec
	if err != nil {
		return nil, err
	}
	if dst, err = AppendTypeReference(dst, sig.ReturnType); err != nil {
		return nil, err
	}
	for _, p := range sig.Parameters {
		if dst, err = AppendTypeReference(dst, p); err != nil {
			return nil, err
		}
	}

	return dst, nil
}

// EncodeLocalVariables encodes a local variable signature blob.
func EncodeLocalVariables(vars []VariableDefinition) ([]byte, error) {
	types := make([]TypeReference, len(vars))
	for i, v := range vars {
		types[i] = v.Type
	}

	return appendTypeList([]byte{byte(ConvLocalSig)}, types)
}

// EncodeGenericArguments encodes a MethodSpec instantiation blob.
func EncodeGenericArguments(args []TypeReference) ([]byte, error) {
	return appendTypeList([]byte{byte(ConvGenericInst)}, args)
}

// EncodeConstantValue encodes a Go value as a Constant blob and reports the
// element type to store in the Constant row.
func EncodeConstantValue(value any) (format.ElementType, []byte, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return format.ElementBoolean, []byte{1}, nil
		}
		return format.ElementBoolean, []byte{0}, nil
	case Char:
		return format.ElementChar, le.AppendUint16(nil, uint16(v)), nil
	case string:
		b, err := encoding.EncodeUTF16(v)
		return format.ElementString, b, err
	case int8:
		return format.ElementI1, []byte{byte(v)}, nil
	case uint8:
		return format.ElementU1, []byte{v}, nil
	case int16:
		return format.ElementI2, le.AppendUint16(nil, uint16(v)), nil //nolint:gosec
	case uint16:
		return format.ElementU2, le.AppendUint16(nil, v), nil
	case int32:
		return format.ElementI4, le.AppendUint32(nil, uint32(v)), nil //nolint:gosec
	case uint32:
		return format.ElementU4, le.AppendUint32(nil, v), nil
	case int64:
		return format.ElementI8, le.AppendUint64(nil, uint64(v)), nil //nolint:gosec
	case uint64:
		return format.ElementU8, le.AppendUint64(nil, v), nil
	case float32:
		return format.ElementR4, le.AppendUint32(nil, math.Float32bits(v)), nil
	case float64:
		return format.ElementR8, le.AppendUint64(nil, math.Float64bits(v)), nil
	default:
		return 0, nil, fmt.Errorf("%w: Go type %T", errs.ErrUnsupportedConstantType, value)
	}
}

// EncodeCustomAttributeSignature encodes the fixed arguments of a custom
// attribute value. NamedArgs are not encoded; the named argument count is 0.
func EncodeCustomAttributeSignature(sig *CustomAttributeSignature) ([]byte, error) {
	dst := le.AppendUint16(nil, CustomAttributeProlog)

	var err error
	for i, arg := range sig.FixedArgs {
		if dst, err = appendArgumentValue(dst, arg.Type, arg.Value); err != nil {
			return nil, fmt.Errorf("fixed argument %d: %w", i, err)
		}
	}

	return le.AppendUint16(dst, 0), nil
}

func appendArgumentValue(dst []byte, t TypeReference, value any) ([]byte, error) {
	arr, ok := t.(*SzArrayType)
	if !ok {
		return appendElement(dst, t, value)
	}

	elems, ok := value.([]any)
	if !ok || len(elems) > math.MaxUint16 {
		return dst, fmt.Errorf("%w: vector argument %T", errs.ErrUnsupportedElementType, value)
	}
	dst = le.AppendUint16(dst, uint16(len(elems))) //nolint:gosec

	var err error
	for _, e := range elems {
		if dst, err = appendElement(dst, arr.Element, e); err != nil {
			return dst, err
		}
	}

	return dst, nil
}

func appendElement(dst []byte, t TypeReference, value any) ([]byte, error) {
	if isSystemType(t) || t.ElementType() == format.ElementString {
		s, ok := value.(string)
		if !ok {
			return dst, fmt.Errorf("%w: string argument %T", errs.ErrUnsupportedElementType, value)
		}
		return encoding.AppendSerString(dst, s, false)
	}

	tag, b, err := EncodeConstantValue(value)
	if err != nil {
		return dst, err
	}
	if tag != t.ElementType() {
		return dst, fmt.Errorf("%w: %T for parameter of type %s", errs.ErrUnsupportedElementType, value, t.ElementType())
	}

	return append(dst, b...), nil
}
