package metadata

import (
	"fmt"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
	"github.com/arloliu/clrmeta/table"
)

// column positions shared by TypeDef and TypeRef
const (
	colTypeName      = 1
	colTypeNamespace = 2
)

// resolver answers signature type-name lookups from the model's tables.
//
// TypeSpec names are computed by decoding the TypeSpec signature with a
// shallow resolver, which names nested TypeSpecs by row number only. This
// bounds the recursion for self-referencing specs.
type resolver struct {
	md      *Metadata
	shallow bool
}

func (r *resolver) TypeName(t format.TableType, rid uint32) (string, string, error) {
	row, err := r.md.row(t, rid)
	if err != nil {
		return "", "", err
	}

	switch t {
	case format.TableTypeDef, format.TableTypeRef:
		return row.Cell(colTypeNamespace).Text(), row.Cell(colTypeName).Text(), nil
	case format.TableTypeSpec:
		if r.shallow {
			return "", fmt.Sprintf("TypeSpec[%d]", rid), nil
		}
		d, off := r.md.blobDecoder(row.Cell(0), true)
		typ, err := d.ReadTypeSignature(off, nil)
		if err != nil {
			return "", "", err
		}

		return "", typ.FullName(), nil
	}

	return "", "", fmt.Errorf("%w: %s row %d is not a type", errs.ErrUnresolvedReference, t, rid)
}

func (m *Metadata) row(t format.TableType, rid uint32) (*table.Row, error) {
	tbl, ok := m.tables.Table(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not present", errs.ErrUnresolvedReference, t)
	}

	return tbl.Row(rid)
}

// ResolveMember returns the row identified by a metadata token.
//
// Parameters:
//   - token: Table tag in the top byte, 1-based row number below it
//
// Returns:
//   - *table.Row: The referenced row
//   - error: ErrInvalidToken for a zero token or an unknown table tag,
//     ErrUnresolvedReference if the table is absent or the row out of range
func (m *Metadata) ResolveMember(token uint32) (*table.Row, error) {
	if token == 0 {
		return nil, fmt.Errorf("%w: null token", errs.ErrInvalidToken)
	}

	t := format.TableType(token >> 24)
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: 0x%08x has no table tag", errs.ErrInvalidToken, token)
	}

	return m.row(t, table.GetMemberIndex(token))
}

// ResolveString returns the #US literal referenced by an ldstr token.
//
// Returns:
//   - string: The decoded literal
//   - error: ErrInvalidToken if token does not carry the 0x70 tag
func (m *Metadata) ResolveString(token uint32) (string, error) {
	if token>>24 != format.UserStringTokenTag {
		return "", fmt.Errorf("%w: 0x%08x is not a user string token", errs.ErrInvalidToken, token)
	}

	return m.userStrings.GetStringByOffset(token & 0x00FFFFFF)
}

// ResolveToken returns the string of a user string token or the row of any
// other token.
func (m *Metadata) ResolveToken(token uint32) (any, error) {
	if token>>24 == format.UserStringTokenTag {
		return m.ResolveString(token)
	}

	return m.ResolveMember(token)
}
