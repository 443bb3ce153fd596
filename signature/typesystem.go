package signature

import "github.com/arloliu/clrmeta/format"

// TypeSystem owns the primitive type singletons of one loaded module.
type TypeSystem struct {
	Void       *PrimitiveType
	Boolean    *PrimitiveType
	Char       *PrimitiveType
	Int8       *PrimitiveType
	UInt8      *PrimitiveType
	Int16      *PrimitiveType
	UInt16     *PrimitiveType
	Int32      *PrimitiveType
	UInt32     *PrimitiveType
	Int64      *PrimitiveType
	UInt64     *PrimitiveType
	Single     *PrimitiveType
	Double     *PrimitiveType
	String     *PrimitiveType
	Object     *PrimitiveType
	IntPtr     *PrimitiveType
	UIntPtr    *PrimitiveType
	TypedByRef *PrimitiveType
	Type       *PrimitiveType

	byElement map[format.ElementType]*PrimitiveType
}

// NewTypeSystem creates the primitive singletons.
func NewTypeSystem() *TypeSystem {
	ts := &TypeSystem{byElement: make(map[format.ElementType]*PrimitiveType)}

	def := func(e format.ElementType, name string, valueType bool) *PrimitiveType {
		p := &PrimitiveType{elem: e, namespace: "System", name: name, valueType: valueType}
		ts.byElement[e] = p

		return p
	}

	ts.Void = def(format.ElementVoid, "Void", true)
	ts.Boolean = def(format.ElementBoolean, "Boolean", true)
	ts.Char = def(format.ElementChar, "Char", true)
	ts.Int8 = def(format.ElementI1, "SByte", true)
	ts.UInt8 = def(format.ElementU1, "Byte", true)
	ts.Int16 = def(format.ElementI2, "Int16", true)
	ts.UInt16 = def(format.ElementU2, "UInt16", true)
	ts.Int32 = def(format.ElementI4, "Int32", true)
	ts.UInt32 = def(format.ElementU4, "UInt32", true)
	ts.Int64 = def(format.ElementI8, "Int64", true)
	ts.UInt64 = def(format.ElementU8, "UInt64", true)
	ts.Single = def(format.ElementR4, "Single", true)
	ts.Double = def(format.ElementR8, "Double", true)
	ts.String = def(format.ElementString, "String", false)
	ts.Object = def(format.ElementObject, "Object", false)
	ts.IntPtr = def(format.ElementI, "IntPtr", true)
	ts.UIntPtr = def(format.ElementU, "UIntPtr", true)
	ts.TypedByRef = def(format.ElementTypedByRef, "TypedReference", true)
	ts.Type = def(format.ElementSystemType, "Type", false)

	return ts
}

// Primitive returns the singleton for a primitive element tag.
func (ts *TypeSystem) Primitive(e format.ElementType) (*PrimitiveType, bool) {
	p, ok := ts.byElement[e]
	return p, ok
}
