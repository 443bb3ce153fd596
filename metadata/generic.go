package metadata

import (
	"fmt"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
	"github.com/arloliu/clrmeta/signature"
	"github.com/arloliu/clrmeta/table"
)

// GenericContextFor returns the generic parameters visible to signatures of
// row.
//
// TypeDef rows see their own GenericParam rows as type parameters. Method and
// Field rows see the type parameters of their declaring type, and methods
// also see their own method parameters. MemberRef and TypeSpec rows whose
// type is a generic instantiation see its arguments. MethodSpec rows see the
// instantiation arguments as method parameters. Other rows get an empty
// context.
func (m *Metadata) GenericContextFor(row *table.Row) (signature.GenericContext, error) {
	if err := m.owns(row); err != nil {
		return nil, err
	}

	switch row.Table() {
	case format.TableTypeDef:
		return &signature.StaticContext{Type: m.genericParams(row, format.ElementVar)}, nil

	case format.TableMethod, format.TableField:
		owner, err := m.DeclaringType(row)
		if err != nil {
			return nil, err
		}
		ctx := &signature.StaticContext{Type: m.genericParams(owner, format.ElementVar)}
		if row.Table() == format.TableMethod {
			ctx.Method = m.genericParams(row, format.ElementMVar)
		}

		return ctx, nil

	case format.TableMemberRef:
		parent := row.Cell(colMemberRefClass).Row()
		if parent == nil {
			return &signature.StaticContext{}, nil
		}

		return m.GenericContextFor(parent)

	case format.TableTypeSpec:
		d, off := m.blobDecoder(row.Cell(0), false)
		typ, err := d.ReadTypeSignature(off, nil)
		if err != nil {
			return nil, err
		}
		if inst, ok := typ.(*signature.GenericInstanceType); ok {
			return inst, nil
		}

		return &signature.StaticContext{}, nil

	case format.TableMethodSpec:
		method := row.Cell(0).Row()
		if method == nil {
			return nil, fmt.Errorf("%w: MethodSpec[%d] has no method", errs.ErrUnresolvedReference, row.RID())
		}
		base, err := m.GenericContextFor(method)
		if err != nil {
			return nil, err
		}
		d, off := m.blobDecoder(row.Cell(1), false)
		args, err := d.ReadGenericArgumentsSignature(off, base)
		if err != nil {
			return nil, err
		}

		return &signature.StaticContext{Type: base.TypeParameters(), Method: args}, nil
	}

	return &signature.StaticContext{}, nil
}

// genericParams collects the GenericParam rows owned by owner, indexed by
// their Number column.
func (m *Metadata) genericParams(owner *table.Row, kind format.ElementType) []signature.TypeReference {
	tbl, ok := m.tables.Table(format.TableGenericParam)
	if !ok {
		return nil
	}

	var params []signature.TypeReference
	for _, gp := range tbl.Rows() {
		if gp.Cell(colGenericParamOwner).Row() != owner {
			continue
		}
		n := gp.Cell(colGenericParamNumber).Uint()
		for uint32(len(params)) <= n { //nolint:gosec
			params = append(params, nil)
		}
		params[n] = &signature.GenericParamType{
			Kind:     kind,
			Index:    n,
			Name:     gp.Cell(colGenericParamName).Text(),
			Resolved: true,
		}
	}

	return params
}

// DeclaringType returns the TypeDef row whose field or method list contains
// member.
//
// Returns:
//   - *table.Row: The owning TypeDef row
//   - error: ErrUnresolvedReference if member is not a Field or Method row or
//     no type lists it
func (m *Metadata) DeclaringType(member *table.Row) (*table.Row, error) {
	var col int
	switch member.Table() {
	case format.TableField:
		col = colTypeDefFieldList
	case format.TableMethod:
		col = colTypeDefMethodList
	default:
		return nil, fmt.Errorf("%w: %s rows have no declaring type", errs.ErrUnresolvedReference, member.Table())
	}

	types, ok := m.tables.Table(format.TableTypeDef)
	if !ok {
		return nil, fmt.Errorf("%w: no TypeDef table", errs.ErrUnresolvedReference)
	}

	return listOwner(types, col, m.tableLen(member.Table()), member.RID())
}

// DeclaringMethod returns the Method row whose parameter list contains param.
func (m *Metadata) DeclaringMethod(param *table.Row) (*table.Row, error) {
	if param.Table() != format.TableParam {
		return nil, fmt.Errorf("%w: %s rows have no declaring method", errs.ErrUnresolvedReference, param.Table())
	}
	methods, ok := m.tables.Table(format.TableMethod)
	if !ok {
		return nil, fmt.Errorf("%w: no Method table", errs.ErrUnresolvedReference)
	}

	return listOwner(methods, colMethodParamList, m.tableLen(format.TableParam), param.RID())
}

// listRange returns the [start, end) run that row i of owners covers in a
// target table of targetLen rows.
func listRange(owners *table.Table, col int, targetLen int, i int) (uint32, uint32) {
	rows := owners.Rows()
	start := rows[i].Cell(col).Uint()
	end := uint32(targetLen + 1) //nolint:gosec
	if i+1 < len(rows) {
		end = rows[i+1].Cell(col).Uint()
	}

	return start, end
}

func listOwner(owners *table.Table, col int, targetLen int, rid uint32) (*table.Row, error) {
	for i, r := range owners.Rows() {
		start, end := listRange(owners, col, targetLen, i)
		if rid >= start && rid < end {
			return r, nil
		}
	}

	return nil, fmt.Errorf("%w: no %s row lists row %d", errs.ErrUnresolvedReference, owners.Type(), rid)
}

func (m *Metadata) tableLen(t format.TableType) int {
	tbl, ok := m.tables.Table(t)
	if !ok {
		return 0
	}

	return tbl.Len()
}
