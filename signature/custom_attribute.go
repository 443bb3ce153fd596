package signature

import (
	"fmt"

	"github.com/arloliu/clrmeta/encoding"
	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
)

// ReadCustomAttributeSignature decodes the fixed arguments of a custom
// attribute value blob.
//
// The blob must start with the 0x0001 prolog. Exactly one fixed argument is
// decoded per parameter of ctor; named arguments are not decoded and
// NamedArgs is always empty.
//
// Parameters:
//   - offset: Blob heap offset of the attribute value
//   - ctor: Signature of the attribute constructor, may be nil for no arguments
//
// Returns:
//   - *CustomAttributeSignature: Decoded arguments
//   - error: ErrInvalidSignatureKind for a bad prolog, ErrUnsupportedElementType
//     for argument types that cannot be decoded without loading other modules
func (d *Decoder) ReadCustomAttributeSignature(offset uint32, ctor *MethodSignature) (*CustomAttributeSignature, error) {
	r, err := d.reader(offset)
	if err != nil {
		return nil, err
	}

	prolog, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	if prolog != CustomAttributeProlog {
		return nil, fmt.Errorf("%w: custom attribute prolog 0x%04x", errs.ErrInvalidSignatureKind, prolog)
	}

	sig := &CustomAttributeSignature{NamedArgs: []CustomAttributeArgument{}}
	if ctor == nil {
		sig.FixedArgs = []CustomAttributeArgument{}
		return sig, nil
	}

	sig.FixedArgs = make([]CustomAttributeArgument, len(ctor.Parameters))
	for i, p := range ctor.Parameters {
		v, err := d.readArgumentValue(r, p)
		if err != nil {
			return nil, fmt.Errorf("fixed argument %d: %w", i, err)
		}
		sig.FixedArgs[i] = CustomAttributeArgument{Type: p, Value: v}
	}

	return sig, nil
}

func (d *Decoder) readArgumentValue(r *encoding.BlobReader, t TypeReference) (any, error) {
	arr, ok := t.(*SzArrayType)
	if !ok {
		return d.readElement(r, t)
	}

	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}

	elems := make([]any, count)
	for i := range elems {
		if elems[i], err = d.readElement(r, arr.Element); err != nil {
			return nil, err
		}
	}

	return elems, nil
}

func isSystemType(t TypeReference) bool {
	if t.ElementType() == format.ElementSystemType {
		return true
	}
	if ref, ok := t.(*DefOrRefType); ok && !ref.IsValueType() {
		return ref.FullName() == "System.Type"
	}

	return false
}

func (d *Decoder) readElement(r *encoding.BlobReader, t TypeReference) (any, error) {
	if isSystemType(t) {
		return readSerString(r)
	}

	switch t.ElementType() {
	case format.ElementObject:
		return d.readBoxed(r)
	case format.ElementString:
		return readSerString(r)
	default:
		return readScalar(r, t.ElementType())
	}
}

// readBoxed decodes an argument of declared type object, which is prefixed by
// its own FieldOrPropType tag.
func (d *Decoder) readBoxed(r *encoding.BlobReader) (any, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	elem := format.ElementType(tag)
	if elem == format.ElementSzArray {
		inner, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		p, ok := d.types.Primitive(format.ElementType(inner))
		if !ok {
			return nil, fmt.Errorf("%w: boxed vector of %s", errs.ErrUnsupportedElementType, format.ElementType(inner))
		}

		return d.readArgumentValue(r, &SzArrayType{Element: p})
	}

	p, ok := d.types.Primitive(elem)
	if !ok || elem == format.ElementObject {
		return nil, fmt.Errorf("%w: boxed %s", errs.ErrUnsupportedElementType, elem)
	}

	return d.readElement(r, p)
}

func readSerString(r *encoding.BlobReader) (any, error) {
	s, _, err := encoding.ReadSerString(r)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// readScalar reads one fixed-size value. Unsigned tags decode to unsigned Go types.
func readScalar(r *encoding.BlobReader, e format.ElementType) (any, error) {
	switch e {
	case format.ElementBoolean:
		b, err := r.ReadByte()
		return b == 1, err
	case format.ElementChar:
		c, err := r.ReadUint16()
		return Char(c), err
	case format.ElementI1:
		return r.ReadInt8()
	case format.ElementU1:
		return r.ReadByte()
	case format.ElementI2:
		return r.ReadInt16()
	case format.ElementU2:
		return r.ReadUint16()
	case format.ElementI4:
		return r.ReadInt32()
	case format.ElementU4:
		return r.ReadUint32()
	case format.ElementI8:
		return r.ReadInt64()
	case format.ElementU8:
		return r.ReadUint64()
	case format.ElementR4:
		return r.ReadFloat32()
	case format.ElementR8:
		return r.ReadFloat64()
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedElementType, e)
	}
}
