package format

import "fmt"

// TableType is the tag of a metadata table. It is also the top byte of every
// metadata token that refers to a row of that table.
type TableType uint8

const (
	TableModule                 TableType = 0x00
	TableTypeRef                TableType = 0x01
	TableTypeDef                TableType = 0x02
	TableFieldPtr               TableType = 0x03
	TableField                  TableType = 0x04
	TableMethodPtr              TableType = 0x05
	TableMethod                 TableType = 0x06
	TableParamPtr               TableType = 0x07
	TableParam                  TableType = 0x08
	TableInterfaceImpl          TableType = 0x09
	TableMemberRef              TableType = 0x0a
	TableConstant               TableType = 0x0b
	TableCustomAttribute        TableType = 0x0c
	TableFieldMarshal           TableType = 0x0d
	TableDeclSecurity           TableType = 0x0e
	TableClassLayout            TableType = 0x0f
	TableFieldLayout            TableType = 0x10
	TableStandAloneSig          TableType = 0x11
	TableEventMap               TableType = 0x12
	TableEventPtr               TableType = 0x13
	TableEvent                  TableType = 0x14
	TablePropertyMap            TableType = 0x15
	TablePropertyPtr            TableType = 0x16
	TableProperty               TableType = 0x17
	TableMethodSemantics        TableType = 0x18
	TableMethodImpl             TableType = 0x19
	TableModuleRef              TableType = 0x1a
	TableTypeSpec               TableType = 0x1b
	TableImplMap                TableType = 0x1c
	TableFieldRVA               TableType = 0x1d
	TableEncLog                 TableType = 0x1e
	TableEncMap                 TableType = 0x1f
	TableAssembly               TableType = 0x20
	TableAssemblyProcessor      TableType = 0x21
	TableAssemblyOS             TableType = 0x22
	TableAssemblyRef            TableType = 0x23
	TableAssemblyRefProcessor   TableType = 0x24
	TableAssemblyRefOS          TableType = 0x25
	TableFile                   TableType = 0x26
	TableExportedType           TableType = 0x27
	TableManifestResource       TableType = 0x28
	TableNestedClass            TableType = 0x29
	TableGenericParam           TableType = 0x2a
	TableMethodSpec             TableType = 0x2b
	TableGenericParamConstraint TableType = 0x2c

	// TableUnused fills the slots of coded index groups that are reserved
	// by the format (e.g. tags 0, 1 and 4 of CustomAttributeType).
	TableUnused TableType = 0xff
)

// TableCount is the number of table slots covered by the presence bitmask.
const TableCount = 45

// UserStringTokenTag is the token tag of #US heap entries (ldstr operands).
const UserStringTokenTag = 0x70

var tableTypeNames = [TableCount]string{
	"Module", "TypeRef", "TypeDef", "FieldPtr", "Field", "MethodPtr", "Method", "ParamPtr",
	"Param", "InterfaceImpl", "MemberRef", "Constant", "CustomAttribute", "FieldMarshal",
	"DeclSecurity", "ClassLayout", "FieldLayout", "StandAloneSig", "EventMap", "EventPtr",
	"Event", "PropertyMap", "PropertyPtr", "Property", "MethodSemantics", "MethodImpl",
	"ModuleRef", "TypeSpec", "ImplMap", "FieldRVA", "EncLog", "EncMap", "Assembly",
	"AssemblyProcessor", "AssemblyOS", "AssemblyRef", "AssemblyRefProcessor", "AssemblyRefOS",
	"File", "ExportedType", "ManifestResource", "NestedClass", "GenericParam", "MethodSpec",
	"GenericParamConstraint",
}

func (t TableType) String() string {
	if t.IsValid() {
		return tableTypeNames[t]
	}
	if t == TableUnused {
		return "Unused"
	}

	return fmt.Sprintf("TableType(0x%02x)", uint8(t))
}

// IsValid reports whether t is one of the 45 table slots.
func (t TableType) IsValid() bool {
	return t < TableCount
}

// Mask returns the bit of t in the MaskValid/MaskSorted words.
func (t TableType) Mask() uint64 {
	return uint64(1) << t
}

// Token builds the metadata token of row rid (1-based) in table t.
func (t TableType) Token(rid uint32) uint32 {
	return uint32(t)<<24 | rid&0x00FFFFFF
}

// CodedIndexKind names one of the coded index groups of ECMA-335 II.24.2.6.
type CodedIndexKind uint8

const (
	TypeDefOrRef CodedIndexKind = iota
	HasConstant
	HasCustomAttribute
	HasFieldMarshal
	HasDeclSecurity
	MemberRefParent
	HasSemantics
	MethodDefOrRef
	MemberForwarded
	Implementation
	CustomAttributeType
	ResolutionScope
	TypeOrMethodDef

	codedIndexKindCount
)

// CodedIndexKindCount is the number of coded index groups.
const CodedIndexKindCount = int(codedIndexKindCount)

var codedIndexKindNames = [codedIndexKindCount]string{
	"TypeDefOrRef", "HasConstant", "HasCustomAttribute", "HasFieldMarshal", "HasDeclSecurity",
	"MemberRefParent", "HasSemantics", "MethodDefOrRef", "MemberForwarded", "Implementation",
	"CustomAttributeType", "ResolutionScope", "TypeOrMethodDef",
}

func (k CodedIndexKind) String() string {
	if k < codedIndexKindCount {
		return codedIndexKindNames[k]
	}

	return fmt.Sprintf("CodedIndexKind(%d)", uint8(k))
}
