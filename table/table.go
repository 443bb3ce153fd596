package table

import (
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
)

// LargeTableThreshold is the row count above which indices into a table are
// stored as 4 bytes.
const LargeTableThreshold = 0xFFFF

// Table is the ordered row list of one metadata table.
type Table struct {
	typ    format.TableType
	schema *Schema
	rows   []*Row
}

func newTable(t format.TableType) *Table {
	s, _ := SchemaOf(t)
	return &Table{typ: t, schema: s}
}

// Type returns the table's tag.
func (t *Table) Type() format.TableType { return t.typ }

// Schema returns the table's column layout.
func (t *Table) Schema() *Schema { return t.schema }

// Rows returns the table's rows in order. The slice must not be modified.
func (t *Table) Rows() []*Row { return t.rows }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// IsLarge reports whether indices into the table need 4 bytes.
func (t *Table) IsLarge() bool { return len(t.rows) > LargeTableThreshold }

// Row returns the row with 1-based number rid.
//
// Returns:
//   - *Row: The row
//   - error: ErrUnresolvedReference if rid is 0 or beyond the last row
func (t *Table) Row(rid uint32) (*Row, error) {
	if rid == 0 || int(rid) > len(t.rows) {
		return nil, fmt.Errorf("%w: %s has no row %d (%d rows)", errs.ErrUnresolvedReference, t.typ, rid, len(t.rows))
	}

	return t.rows[rid-1], nil
}

// Append adds a row built from cells at the end of the table.
//
// Returns:
//   - *Row: The new row, marked modified
//   - error: ErrTableSchemaMismatch if cells do not match the schema
func (t *Table) Append(cells ...Cell) (*Row, error) {
	return t.Insert(len(t.rows)+1, cells...)
}

// Insert adds a row built from cells so that it gets 1-based number rid. Rows
// at rid and after it move down by one.
func (t *Table) Insert(rid int, cells ...Cell) (*Row, error) {
	if rid < 1 || rid > len(t.rows)+1 {
		return nil, fmt.Errorf("%w: cannot insert %s row at %d (%d rows)", errs.ErrUnresolvedReference, t.typ, rid, len(t.rows))
	}
	if err := t.validate(cells); err != nil {
		return nil, err
	}

	owned := make([]Cell, len(cells))
	copy(owned, cells)
	row := &Row{table: t.typ, owner: t, cells: owned, dirty: true}

	t.rows = append(t.rows, nil)
	copy(t.rows[rid:], t.rows[rid-1:])
	t.rows[rid-1] = row
	t.renumber(rid - 1)

	return row, nil
}

// Remove detaches row from the table and renumbers the rows after it.
func (t *Table) Remove(row *Row) error {
	if row == nil || row.owner != t {
		return fmt.Errorf("%w: row does not belong to %s", errs.ErrUnresolvedReference, t.typ)
	}

	i := int(row.index) - 1
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	row.owner = nil
	row.index = 0
	t.renumber(i)

	return nil
}

// reorder stable-sorts the rows with cmp and marks moved rows modified. The
// returned func puts the previous order back.
func (t *Table) reorder(cmp func(a, b *Row) int) func() {
	prev := slices.Clone(t.rows)
	dirty := make([]bool, len(prev))
	for i, r := range prev {
		dirty[i] = r.dirty
	}

	slices.SortStableFunc(t.rows, cmp)
	for i, r := range t.rows {
		if r != prev[i] {
			r.dirty = true
		}
	}
	t.renumber(0)

	return func() {
		t.rows = prev
		for i, r := range prev {
			r.dirty = dirty[i]
		}
		t.renumber(0)
	}
}

func (t *Table) renumber(from int) {
	for i := from; i < len(t.rows); i++ {
		t.rows[i].index = uint32(i + 1) //nolint:gosec
	}
}

// Modified returns the 1-based numbers of rows created or changed since the
// last rebuild.
func (t *Table) Modified() *roaring.Bitmap {
	bm := roaring.New()
	for _, r := range t.rows {
		if r.dirty {
			bm.Add(r.index)
		}
	}

	return bm
}

func (t *Table) clearModified() {
	for _, r := range t.rows {
		r.dirty = false
	}
}

func (t *Table) validate(cells []Cell) error {
	if len(cells) != len(t.schema.Columns) {
		return fmt.Errorf("%w: %s expects %d columns, got %d",
			errs.ErrTableSchemaMismatch, t.typ, len(t.schema.Columns), len(cells))
	}
	for i, c := range cells {
		col := t.schema.Columns[i]
		if !c.accepts(col) {
			return fmt.Errorf("%w: %s.%s (%s) cannot hold a %s cell",
				errs.ErrTableSchemaMismatch, t.typ, col.Name, col.Kind, c.kind)
		}
	}

	return nil
}
