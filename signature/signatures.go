package signature

import (
	"strings"
)

// CallingConvention is the low nibble of a method signature's first byte,
// or the marker byte of a non-method signature.
type CallingConvention uint8

const (
	ConvDefault      CallingConvention = 0x00
	ConvC            CallingConvention = 0x01
	ConvStdCall      CallingConvention = 0x02
	ConvThisCall     CallingConvention = 0x03
	ConvFastCall     CallingConvention = 0x04
	ConvVarArg       CallingConvention = 0x05
	ConvField        CallingConvention = 0x06
	ConvLocalSig     CallingConvention = 0x07
	ConvProperty     CallingConvention = 0x08
	ConvGenericInst  CallingConvention = 0x0A
	ConvMask         CallingConvention = 0x0F
	FlagGeneric      CallingConvention = 0x10
	FlagHasThis      CallingConvention = 0x20
	FlagExplicitThis CallingConvention = 0x40
)

// CustomAttributeProlog starts every custom attribute value blob.
const CustomAttributeProlog = 0x0001

// MemberSignature is either a *FieldSignature or a *MethodSignature.
type MemberSignature interface {
	isMemberSignature()
}

// FieldSignature is the signature of a field or a field MemberRef.
type FieldSignature struct {
	Type TypeReference
}

func (*FieldSignature) isMemberSignature() {}

// MethodSignature is the signature of a method, a method MemberRef or a
// function pointer.
type MethodSignature struct {
	CallingConvention     CallingConvention
	HasThis               bool
	ExplicitThis          bool
	GenericParameterCount uint32
	ReturnType            TypeReference
	Parameters            []TypeReference
	// SentinelIndex is the index of the first vararg parameter, or -1.
	SentinelIndex int
}

func (*MethodSignature) isMemberSignature() {}

// IsGeneric reports whether the method declares generic parameters.
func (m *MethodSignature) IsGeneric() bool {
	return m.GenericParameterCount > 0
}

func (m *MethodSignature) String() string {
	var sb strings.Builder
	if m.HasThis {
		sb.WriteString("instance ")
	}
	sb.WriteString(m.ReturnType.FullName())
	sb.WriteString("(")
	for i, p := range m.Parameters {
		if i > 0 {
			sb.WriteString(",")
		}
		if i == m.SentinelIndex {
			sb.WriteString("...,")
		}
		sb.WriteString(p.FullName())
	}
	sb.WriteString(")")

	return sb.String()
}

// PropertySignature is the signature of a property.
type PropertySignature struct {
	HasThis    bool
	ReturnType TypeReference
	Parameters []TypeReference
}

// VariableDefinition is one local variable of a method body.
type VariableDefinition struct {
	Index int
	Type  TypeReference
}

// Char is a UTF-16 code unit decoded from a Char constant or argument.
type Char uint16

// CustomAttributeArgument is one decoded custom attribute argument. Value is
// a Go scalar (int8 ... float64, bool, Char, string) or []any for vectors.
type CustomAttributeArgument struct {
	Type  TypeReference
	Value any
}

// CustomAttributeSignature holds the arguments of a custom attribute value.
// NamedArgs is always empty.
type CustomAttributeSignature struct {
	FixedArgs []CustomAttributeArgument
	NamedArgs []CustomAttributeArgument
}
