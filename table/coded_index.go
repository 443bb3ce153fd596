package table

import (
	"fmt"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
)

// CodedIndexGroup is one coded index encoding of ECMA-335 II.24.2.6.
//
// A coded value stores the row number shifted left by TagBits, with the
// position of the row's table inside Tables in the low bits.
type CodedIndexGroup struct {
	Kind    format.CodedIndexKind
	Tables  []format.TableType
	TagBits uint
}

var codedIndexTables = map[format.CodedIndexKind][]format.TableType{
	format.TypeDefOrRef: {format.TableTypeDef, format.TableTypeRef, format.TableTypeSpec},
	format.HasConstant:  {format.TableField, format.TableParam, format.TableProperty},
	format.HasCustomAttribute: {
		format.TableMethod, format.TableField, format.TableTypeRef, format.TableTypeDef,
		format.TableParam, format.TableInterfaceImpl, format.TableMemberRef, format.TableModule,
		format.TableDeclSecurity, format.TableProperty, format.TableEvent, format.TableStandAloneSig,
		format.TableModuleRef, format.TableTypeSpec, format.TableAssembly, format.TableAssemblyRef,
		format.TableFile, format.TableExportedType, format.TableManifestResource,
		format.TableGenericParam, format.TableGenericParamConstraint, format.TableMethodSpec,
	},
	format.HasFieldMarshal: {format.TableField, format.TableParam},
	format.HasDeclSecurity: {format.TableTypeDef, format.TableMethod, format.TableAssembly},
	format.MemberRefParent: {
		format.TableTypeDef, format.TableTypeRef, format.TableModuleRef, format.TableMethod, format.TableTypeSpec,
	},
	format.HasSemantics:    {format.TableEvent, format.TableProperty},
	format.MethodDefOrRef:  {format.TableMethod, format.TableMemberRef},
	format.MemberForwarded: {format.TableField, format.TableMethod},
	format.Implementation:  {format.TableFile, format.TableAssemblyRef, format.TableExportedType},
	format.CustomAttributeType: {
		format.TableUnused, format.TableUnused, format.TableMethod, format.TableMemberRef, format.TableUnused,
	},
	format.ResolutionScope: {
		format.TableModule, format.TableModuleRef, format.TableAssemblyRef, format.TableTypeRef,
	},
	format.TypeOrMethodDef: {format.TableTypeDef, format.TableMethod},
}

var codedIndexGroups = mustCodedIndexGroups()

func mustCodedIndexGroups() [format.CodedIndexKindCount]*CodedIndexGroup {
	groups, err := newCodedIndexGroups(codedIndexTables)
	if err != nil {
		panic(err)
	}

	return groups
}

// newCodedIndexGroups builds every group from defs and checks that each kind
// has a non-empty table list made of valid tables or the unused placeholder.
func newCodedIndexGroups(defs map[format.CodedIndexKind][]format.TableType) ([format.CodedIndexKindCount]*CodedIndexGroup, error) {
	var out [format.CodedIndexKindCount]*CodedIndexGroup

	for k := range format.CodedIndexKindCount {
		kind := format.CodedIndexKind(k)
		tables, ok := defs[kind]
		if !ok || len(tables) == 0 {
			return out, fmt.Errorf("coded index group %s has no tables", kind)
		}
		for _, t := range tables {
			if !t.IsValid() && t != format.TableUnused {
				return out, fmt.Errorf("coded index group %s lists invalid table %s", kind, t)
			}
		}

		bits := uint(0)
		for 1<<bits < len(tables) {
			bits++
		}
		out[k] = &CodedIndexGroup{Kind: kind, Tables: tables, TagBits: bits}
	}

	return out, nil
}

// Group returns the coded index group of kind.
func Group(kind format.CodedIndexKind) *CodedIndexGroup {
	if int(kind) >= format.CodedIndexKindCount {
		return nil
	}

	return codedIndexGroups[kind]
}

// Tag returns the tag of table t within the group.
func (g *CodedIndexGroup) Tag(t format.TableType) (uint32, bool) {
	if t == format.TableUnused {
		return 0, false
	}
	for i, member := range g.Tables {
		if member == t {
			return uint32(i), true //nolint:gosec
		}
	}

	return 0, false
}

// Contains reports whether rows of table t can be referenced through the group.
func (g *CodedIndexGroup) Contains(t format.TableType) bool {
	_, ok := g.Tag(t)
	return ok
}

// Encode combines a table and a 1-based row number into a coded value.
//
// Returns:
//   - uint32: rid<<TagBits | tag
//   - error: ErrUnresolvedReference if t is not a member of the group
func (g *CodedIndexGroup) Encode(t format.TableType, rid uint32) (uint32, error) {
	tag, ok := g.Tag(t)
	if !ok {
		return 0, fmt.Errorf("%w: table %s is not part of coded index %s", errs.ErrUnresolvedReference, t, g.Kind)
	}

	return rid<<g.TagBits | tag, nil
}

// Decode splits a coded value into its table and row number.
//
// Returns:
//   - format.TableType: Table selected by the tag bits
//   - uint32: 1-based row number (0 for a null reference)
//   - error: ErrUnresolvedReference if the tag is out of range or reserved
func (g *CodedIndexGroup) Decode(v uint32) (format.TableType, uint32, error) {
	tag := v & (1<<g.TagBits - 1)
	if int(tag) >= len(g.Tables) || g.Tables[tag] == format.TableUnused {
		return format.TableUnused, 0, fmt.Errorf("%w: tag %d is not valid for coded index %s",
			errs.ErrUnresolvedReference, tag, g.Kind)
	}

	return g.Tables[tag], v >> g.TagBits, nil
}

// IsLarge reports whether the group needs 4-byte values for the given row
// counts: when any member table has 2^(16-TagBits) rows or more.
func (g *CodedIndexGroup) IsLarge(counts *RowCounts) bool {
	limit := uint32(1) << (16 - g.TagBits)
	for _, t := range g.Tables {
		if t.IsValid() && counts[t] >= limit {
			return true
		}
	}

	return false
}

// GetCodedIndex returns the coded value referencing row through group.
//
// Returns:
//   - uint32: Coded value (0 for a nil row)
//   - error: ErrUnresolvedReference if row was removed from its table or its
//     table is not part of group
func GetCodedIndex(group *CodedIndexGroup, row *Row) (uint32, error) {
	if row == nil {
		return 0, nil
	}
	if row.Detached() {
		return 0, fmt.Errorf("%w: %s row was removed", errs.ErrUnresolvedReference, row.Table())
	}

	return group.Encode(row.Table(), row.RID())
}
