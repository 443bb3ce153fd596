package table

import (
	"fmt"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
)

// Row is one row of a metadata table.
//
// A row keeps its 1-based position current while its table is edited. Rows
// removed from their table are detached: their RID becomes 0 and references
// to them fail to encode.
type Row struct {
	table format.TableType
	owner *Table
	index uint32
	cells []Cell
	raw   []uint32
	dirty bool
}

// Table returns the table the row belongs to.
func (r *Row) Table() format.TableType { return r.table }

// RID returns the 1-based row number, or 0 for a detached row.
func (r *Row) RID() uint32 { return r.index }

// Token returns the metadata token of the row.
func (r *Row) Token() uint32 { return r.table.Token(r.index) }

// Detached reports whether the row was removed from its table.
func (r *Row) Detached() bool { return r.owner == nil }

// Cells returns the row's cells. The slice must not be modified.
func (r *Row) Cells() []Cell { return r.cells }

// Cell returns the cell of column i.
func (r *Row) Cell(i int) Cell { return r.cells[i] }

// Named returns the cell of the named column.
func (r *Row) Named(name string) (Cell, bool) {
	s, _ := SchemaOf(r.table)
	i := s.ColumnIndex(name)
	if i < 0 {
		return Cell{}, false
	}

	return r.cells[i], true
}

// Set replaces the cell of column i and marks the row modified.
//
// Returns:
//   - error: ErrTableSchemaMismatch if i is out of range or the cell does not
//     fit the column
func (r *Row) Set(i int, c Cell) error {
	s, _ := SchemaOf(r.table)
	if i < 0 || i >= len(s.Columns) {
		return fmt.Errorf("%w: %s has no column %d", errs.ErrTableSchemaMismatch, r.table, i)
	}
	if !c.accepts(s.Columns[i]) {
		return fmt.Errorf("%w: %s.%s (%s) cannot hold a %s cell",
			errs.ErrTableSchemaMismatch, r.table, s.Columns[i].Name, s.Columns[i].Kind, c.kind)
	}
	r.cells[i] = c
	r.dirty = true

	return nil
}

// Raw returns the column values read from the tables stream, or nil for rows
// created in memory.
func (r *Row) Raw() []uint32 { return r.raw }

// Modified reports whether the row was created or changed since the last
// rebuild.
func (r *Row) Modified() bool { return r.dirty }

// GetMemberIndex returns the 1-based row number encoded in token.
func GetMemberIndex(token uint32) uint32 {
	return token - uint32(token>>24)<<24
}

func (r *Row) String() string {
	return fmt.Sprintf("%s[%d]%v", r.table, r.index, r.cells)
}
