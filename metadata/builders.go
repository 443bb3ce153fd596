package metadata

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
	"github.com/arloliu/clrmeta/signature"
	"github.com/arloliu/clrmeta/table"
)

// column positions used by the builders
const (
	colTypeDefFieldList   = 4
	colTypeDefMethodList  = 5
	colMethodParamList    = 5
	colParamSequence      = 1
	colMemberRefClass     = 0
	colGenericParamNumber = 0
	colGenericParamOwner  = 2
	colGenericParamName   = 3
)

// Version is an assembly version number.
type Version struct {
	Major, Minor, Build, Revision uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// owns checks that row is a live row of this model.
func (m *Metadata) owns(row *table.Row) error {
	if row == nil {
		return fmt.Errorf("%w: nil row", errs.ErrUnresolvedReference)
	}
	if row.Detached() {
		return fmt.Errorf("%w: %s row was removed", errs.ErrUnresolvedReference, row.Table())
	}
	tbl, ok := m.tables.Table(row.Table())
	if !ok || int(row.RID()) > tbl.Len() || tbl.Rows()[row.RID()-1] != row {
		return fmt.Errorf("%w: %s row %d belongs to another model", errs.ErrUnresolvedReference, row.Table(), row.RID())
	}

	return nil
}

func (m *Metadata) ownsAll(rows ...*table.Row) error {
	for _, r := range rows {
		if r == nil {
			continue
		}
		if err := m.owns(r); err != nil {
			return err
		}
	}

	return nil
}

func (m *Metadata) appendRow(t format.TableType, cells ...table.Cell) (*table.Row, error) {
	tbl, err := m.tables.GetOrCreateTable(t)
	if err != nil {
		return nil, err
	}

	return tbl.Append(cells...)
}

// sortKey extracts the ordering key of a row of a sorted table.
type sortKey func(cells []table.Cell) (uint64, error)

// refKey orders rows by the encoded value of a reference column, then by an
// optional secondary constant column.
func refKey(col int, coded *table.CodedIndexGroup, secondary int) sortKey {
	return func(cells []table.Cell) (uint64, error) {
		var primary uint32
		if r := cells[col].Row(); r != nil {
			if coded != nil {
				v, err := table.GetCodedIndex(coded, r)
				if err != nil {
					return 0, err
				}
				primary = v
			} else {
				primary = r.RID()
			}
		}
		key := uint64(primary) << 32
		if secondary >= 0 {
			key |= uint64(cells[secondary].Uint())
		}

		return key, nil
	}
}

// insertSorted inserts cells after the last row whose key is not greater, so
// tables flagged in MaskSorted stay ordered.
func (m *Metadata) insertSorted(t format.TableType, key sortKey, cells ...table.Cell) (*table.Row, error) {
	tbl, err := m.tables.GetOrCreateTable(t)
	if err != nil {
		return nil, err
	}
	k, err := key(cells)
	if err != nil {
		return nil, err
	}

	rows := tbl.Rows()
	pos := len(rows) + 1
	for i := len(rows) - 1; i >= 0; i-- {
		rk, err := key(rows[i].Cells())
		if err != nil {
			return nil, err
		}
		if rk <= k {
			break
		}
		pos = i + 1
	}

	return tbl.Insert(pos, cells...)
}

// insertIntoRun inserts cells at the end of the run that owner covers in
// table t through list column col, and moves the runs of later owners.
func (m *Metadata) insertIntoRun(owner *table.Row, col int, t format.TableType, pick func(start, end uint32) (uint32, error), cells ...table.Cell) (*table.Row, error) {
	owners, _ := m.tables.Table(owner.Table())
	target, err := m.tables.GetOrCreateTable(t)
	if err != nil {
		return nil, err
	}

	i := int(owner.RID()) - 1
	start, end := listRange(owners, col, target.Len(), i)
	if start > end || end > uint32(target.Len()+1) { //nolint:gosec
		return nil, fmt.Errorf("%w: %s[%d] lists %s rows [%d, %d) of %d",
			errs.ErrUnresolvedReference, owner.Table(), owner.RID(), t, start, end, target.Len())
	}
	pos, err := pick(start, end)
	if err != nil {
		return nil, err
	}

	row, err := target.Insert(int(pos), cells...)
	if err != nil {
		return nil, err
	}
	for _, later := range owners.Rows()[i+1:] {
		if err := later.Set(col, table.U(later.Cell(col).Uint()+1)); err != nil {
			return nil, err
		}
	}

	return row, nil
}

func atEnd(_, end uint32) (uint32, error) { return end, nil }

// AddModule adds the Module row.
func (m *Metadata) AddModule(name string, mvid uuid.UUID) (*table.Row, error) {
	return m.appendRow(format.TableModule,
		table.U(0), table.Str(name), table.GUID(mvid), table.GUID(uuid.Nil), table.GUID(uuid.Nil))
}

// AddTypeRef adds a reference to a type defined elsewhere. scope is a Module,
// ModuleRef, AssemblyRef or (for nested types) TypeRef row, or nil.
func (m *Metadata) AddTypeRef(scope *table.Row, namespace, name string) (*table.Row, error) {
	if err := m.ownsAll(scope); err != nil {
		return nil, err
	}

	return m.appendRow(format.TableTypeRef, table.Ref(scope), table.Str(name), table.Str(namespace))
}

// AddTypeDef adds a type definition with empty field and method lists.
// extends is a TypeDef, TypeRef or TypeSpec row, or nil for interfaces and
// <Module>.
func (m *Metadata) AddTypeDef(flags uint32, namespace, name string, extends *table.Row) (*table.Row, error) {
	if err := m.ownsAll(extends); err != nil {
		return nil, err
	}

	return m.appendRow(format.TableTypeDef,
		table.U(flags), table.Str(name), table.Str(namespace), table.Ref(extends),
		table.U(uint32(m.tableLen(format.TableField)+1)),  //nolint:gosec
		table.U(uint32(m.tableLen(format.TableMethod)+1)), //nolint:gosec
	)
}

// AddField adds a field to the end of owner's field list.
func (m *Metadata) AddField(owner *table.Row, flags uint16, name string, sig *signature.FieldSignature) (*table.Row, error) {
	if err := m.requireTable(owner, format.TableTypeDef); err != nil {
		return nil, err
	}
	blob, err := signature.EncodeFieldSignature(sig)
	if err != nil {
		return nil, err
	}

	return m.insertIntoRun(owner, colTypeDefFieldList, format.TableField, atEnd,
		table.U(uint32(flags)), table.Str(name), table.BlobValue(blob))
}

// AddMethod adds a method with an empty parameter list to the end of owner's
// method list.
func (m *Metadata) AddMethod(owner *table.Row, flags, implFlags uint16, name string, sig *signature.MethodSignature, rva uint32) (*table.Row, error) {
	if err := m.requireTable(owner, format.TableTypeDef); err != nil {
		return nil, err
	}
	blob, err := signature.EncodeMethodSignature(sig)
	if err != nil {
		return nil, err
	}

	var paramList uint32
	pick := func(_, end uint32) (uint32, error) {
		// the new method's run is empty and starts where the next one does
		paramList = uint32(m.tableLen(format.TableParam) + 1) //nolint:gosec
		if methods, ok := m.tables.Table(format.TableMethod); ok && int(end) <= methods.Len() {
			next, err := methods.Row(end)
			if err != nil {
				return 0, err
			}
			paramList = next.Cell(colMethodParamList).Uint()
		}

		return end, nil
	}

	row, err := m.insertIntoRun(owner, colTypeDefMethodList, format.TableMethod, pick,
		table.U(rva), table.U(uint32(implFlags)), table.U(uint32(flags)), table.Str(name),
		table.BlobValue(blob), table.U(0))
	if err != nil {
		return nil, err
	}

	if err := row.Set(colMethodParamList, table.U(paramList)); err != nil {
		return nil, err
	}

	return row, nil
}

// AddParam adds a parameter to method, keeping the method's parameters
// ordered by sequence number. Sequence 0 describes the return value.
func (m *Metadata) AddParam(method *table.Row, flags, sequence uint16, name string) (*table.Row, error) {
	if err := m.requireTable(method, format.TableMethod); err != nil {
		return nil, err
	}

	pick := func(start, end uint32) (uint32, error) {
		params, _ := m.tables.Table(format.TableParam)
		for rid := start; rid < end; rid++ {
			p, err := params.Row(rid)
			if err != nil {
				return 0, err
			}
			if p.Cell(colParamSequence).Uint() > uint32(sequence) {
				return rid, nil
			}
		}

		return end, nil
	}

	return m.insertIntoRun(method, colMethodParamList, format.TableParam, pick,
		table.U(uint32(flags)), table.U(uint32(sequence)), table.Str(name))
}

// AddInterfaceImpl records that class implements iface.
func (m *Metadata) AddInterfaceImpl(class, iface *table.Row) (*table.Row, error) {
	if err := m.ownsAll(class, iface); err != nil {
		return nil, err
	}

	return m.insertSorted(format.TableInterfaceImpl, refKey(0, nil, -1), table.Ref(class), table.Ref(iface))
}

// AddMemberRef adds a reference to a field or method of parent. sig is a
// *signature.FieldSignature or a *signature.MethodSignature.
func (m *Metadata) AddMemberRef(parent *table.Row, name string, sig signature.MemberSignature) (*table.Row, error) {
	if err := m.ownsAll(parent); err != nil {
		return nil, err
	}

	var blob []byte
	var err error
	switch s := sig.(type) {
	case *signature.FieldSignature:
		blob, err = signature.EncodeFieldSignature(s)
	case *signature.MethodSignature:
		blob, err = signature.EncodeMethodSignature(s)
	default:
		return nil, fmt.Errorf("%w: member signature %T", errs.ErrInvalidSignatureKind, sig)
	}
	if err != nil {
		return nil, err
	}

	return m.appendRow(format.TableMemberRef, table.Ref(parent), table.Str(name), table.BlobValue(blob))
}

// AddModuleRef adds a reference to another module of the assembly or to a
// native library.
func (m *Metadata) AddModuleRef(name string) (*table.Row, error) {
	return m.appendRow(format.TableModuleRef, table.Str(name))
}

// AddAssemblyRef adds a reference to another assembly.
func (m *Metadata) AddAssemblyRef(name string, version Version, flags uint32, publicKeyOrToken []byte, culture string) (*table.Row, error) {
	return m.appendRow(format.TableAssemblyRef,
		table.U(uint32(version.Major)), table.U(uint32(version.Minor)),
		table.U(uint32(version.Build)), table.U(uint32(version.Revision)),
		table.U(flags), table.BlobValue(publicKeyOrToken), table.Str(name), table.Str(culture),
		table.BlobOffset(0))
}

// AddTypeSpec adds a TypeSpec row for typ, e.g. a generic instantiation.
func (m *Metadata) AddTypeSpec(typ signature.TypeReference) (*table.Row, error) {
	blob, err := signature.AppendTypeReference(nil, typ)
	if err != nil {
		return nil, err
	}

	return m.appendRow(format.TableTypeSpec, table.BlobValue(blob))
}

// AddNestedClass records that nested is declared inside enclosing.
func (m *Metadata) AddNestedClass(nested, enclosing *table.Row) (*table.Row, error) {
	if err := m.ownsAll(nested, enclosing); err != nil {
		return nil, err
	}

	return m.insertSorted(format.TableNestedClass, refKey(0, nil, -1), table.Ref(nested), table.Ref(enclosing))
}

// AddGenericParam adds generic parameter number to owner, a TypeDef or
// Method row.
func (m *Metadata) AddGenericParam(owner *table.Row, number, flags uint16, name string) (*table.Row, error) {
	if err := m.ownsAll(owner); err != nil {
		return nil, err
	}

	return m.insertSorted(format.TableGenericParam,
		refKey(colGenericParamOwner, table.Group(format.TypeOrMethodDef), colGenericParamNumber),
		table.U(uint32(number)), table.U(uint32(flags)), table.Ref(owner), table.Str(name))
}

// AddCustomAttribute attaches an attribute built by ctor (a Method or
// MemberRef row) to parent.
func (m *Metadata) AddCustomAttribute(parent, ctor *table.Row, sig *signature.CustomAttributeSignature) (*table.Row, error) {
	if err := m.ownsAll(parent, ctor); err != nil {
		return nil, err
	}
	blob, err := signature.EncodeCustomAttributeSignature(sig)
	if err != nil {
		return nil, err
	}

	return m.insertSorted(format.TableCustomAttribute, refKey(0, table.Group(format.HasCustomAttribute), -1),
		table.Ref(parent), table.Ref(ctor), table.BlobValue(blob))
}

// AddConstant sets the default value of a Field, Param or Property row.
func (m *Metadata) AddConstant(parent *table.Row, value any) (*table.Row, error) {
	if err := m.ownsAll(parent); err != nil {
		return nil, err
	}
	tag, blob, err := signature.EncodeConstantValue(value)
	if err != nil {
		return nil, err
	}

	return m.insertSorted(format.TableConstant, refKey(2, table.Group(format.HasConstant), -1),
		table.U(uint32(tag)), table.U(0), table.Ref(parent), table.BlobValue(blob))
}

// AddUserString interns s into the #US heap and returns its ldstr token.
func (m *Metadata) AddUserString(s string) (uint32, error) {
	off, err := m.userStrings.GetStringOffset(s)
	if err != nil {
		return 0, err
	}
	if off > 0x00FFFFFF {
		return 0, fmt.Errorf("%w: user string offset 0x%x exceeds token range", errs.ErrEncodingOverflow, off)
	}

	return uint32(format.UserStringTokenTag)<<24 | off, nil
}

func (m *Metadata) requireTable(row *table.Row, t format.TableType) error {
	if err := m.owns(row); err != nil {
		return err
	}
	if row.Table() != t {
		return fmt.Errorf("%w: expected a %s row, got %s", errs.ErrUnresolvedReference, t, row.Table())
	}

	return nil
}
