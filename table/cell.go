package table

import (
	"fmt"

	"github.com/google/uuid"
)

// CellKind is the value class held by a Cell.
type CellKind uint8

const (
	CellNull CellKind = iota
	CellUint
	CellString
	CellGUID
	CellBlobOffset
	CellBlobValue
	CellRef
)

var cellKindNames = [...]string{"Null", "Uint", "String", "GUID", "BlobOffset", "BlobValue", "Ref"}

func (k CellKind) String() string {
	if int(k) < len(cellKindNames) {
		return cellKindNames[k]
	}

	return fmt.Sprintf("CellKind(%d)", uint8(k))
}

// Cell is one column value of a row.
//
// Cells are immutable values; use Row.Set to change a column.
type Cell struct {
	kind CellKind
	u    uint32
	s    string
	g    uuid.UUID
	b    []byte
	row  *Row
}

// U returns a constant or raw list-start cell.
func U(v uint32) Cell { return Cell{kind: CellUint, u: v} }

// Str returns a #Strings cell. The heap offset is assigned on rebuild.
func Str(s string) Cell { return Cell{kind: CellString, s: s} }

// GUID returns a #GUID cell. The zero GUID is stored as index 0.
func GUID(g uuid.UUID) Cell { return Cell{kind: CellGUID, g: g} }

// BlobOffset returns a cell referring to an existing #Blob entry.
func BlobOffset(off uint32) Cell { return Cell{kind: CellBlobOffset, u: off} }

// BlobValue returns a cell holding new blob contents, interned into the #Blob
// heap on rebuild. The slice is copied.
func BlobValue(b []byte) Cell {
	owned := make([]byte, len(b))
	copy(owned, b)

	return Cell{kind: CellBlobValue, b: owned}
}

// Ref returns a cell referencing another row. A nil row yields Null.
func Ref(r *Row) Cell {
	if r == nil {
		return Null()
	}

	return Cell{kind: CellRef, row: r}
}

// Null returns an empty reference cell.
func Null() Cell { return Cell{kind: CellNull} }

// Kind returns the cell's value class.
func (c Cell) Kind() CellKind { return c.kind }

// Uint returns the value of a Uint or BlobOffset cell.
func (c Cell) Uint() uint32 { return c.u }

// Text returns the value of a String cell.
func (c Cell) Text() string { return c.s }

// UUID returns the value of a GUID cell.
func (c Cell) UUID() uuid.UUID { return c.g }

// Blob returns the contents of a BlobValue cell. The slice must not be modified.
func (c Cell) Blob() []byte { return c.b }

// Row returns the referenced row of a Ref cell, or nil.
func (c Cell) Row() *Row { return c.row }

func (c Cell) String() string {
	switch c.kind {
	case CellUint:
		return fmt.Sprintf("0x%x", c.u)
	case CellString:
		return fmt.Sprintf("%q", c.s)
	case CellGUID:
		return c.g.String()
	case CellBlobOffset:
		return fmt.Sprintf("blob@0x%x", c.u)
	case CellBlobValue:
		return fmt.Sprintf("blob[%d]", len(c.b))
	case CellRef:
		if c.row.Detached() {
			return fmt.Sprintf("%s[removed]", c.row.Table())
		}

		return fmt.Sprintf("%s[%d]", c.row.Table(), c.row.RID())
	default:
		return "null"
	}
}

// accepts reports whether the cell kind fits the column.
func (c Cell) accepts(col Column) bool {
	switch col.Kind {
	case ColumnFixed1, ColumnFixed2, ColumnFixed4, ColumnList:
		return c.kind == CellUint
	case ColumnString:
		return c.kind == CellString
	case ColumnGuid:
		return c.kind == CellGUID
	case ColumnBlob:
		return c.kind == CellBlobOffset || c.kind == CellBlobValue
	case ColumnIndex:
		if c.kind == CellNull {
			return true
		}

		return c.kind == CellRef && c.row.Table() == col.Target
	case ColumnCoded:
		if c.kind == CellNull {
			return true
		}

		return c.kind == CellRef && Group(col.Coded).Contains(c.row.Table())
	}

	return false
}
