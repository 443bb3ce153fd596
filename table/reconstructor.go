package table

import (
	"fmt"
	"slices"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
	"github.com/arloliu/clrmeta/heap"
	"github.com/arloliu/clrmeta/internal/options"
	"github.com/arloliu/clrmeta/internal/pool"
)

// heap flag bits recomputed on every rebuild
const computedHeapFlags = format.HeapOffsetStringsLarge | format.HeapOffsetGUIDLarge |
	format.HeapOffsetBlobLarge | format.HeapOffsetExtraData

// ReconstructorOption configures a Reconstructor.
type ReconstructorOption = options.Option[*Reconstructor]

// WithStrictReferences controls whether a null value in a required reference
// column fails the rebuild (the default) or is written as 0.
func WithStrictReferences(strict bool) ReconstructorOption {
	return options.NoError(func(r *Reconstructor) {
		r.strict = strict
	})
}

// WithBlobReconstruction controls whether the #Blob heap is rewritten from its
// cached entries during the rebuild. Enabled by default.
func WithBlobReconstruction(enabled bool) ReconstructorOption {
	return options.NoError(func(r *Reconstructor) {
		r.reconstructBlobs = enabled
	})
}

// Reconstructor serializes a TablesHeap back into a tables stream.
//
// A Reconstructor is single use per rebuild and must not run concurrently
// with readers of the same model.
type Reconstructor struct {
	tables *TablesHeap
	guids  *heap.GuidHeap
	blobs  *heap.BlobHeap

	strict           bool
	reconstructBlobs bool
}

// Result describes a completed rebuild.
type Result struct {
	MaskValid       uint64
	HeapOffsetSizes uint8
	// Dropped lists the tables removed from the model because they had no rows.
	Dropped   []format.TableType
	Strings   *heap.StringHeap
	RowCounts RowCounts
	Widths    *Widths
	// Modified is the number of rows created or changed since the previous rebuild.
	Modified uint64
	// NullReferences counts required references written as 0 in non-strict mode.
	NullReferences int
	Size           uint32
}

// LargeCodedIndices returns the coded index groups written with 4 bytes.
func (r *Result) LargeCodedIndices() []format.CodedIndexKind {
	var out []format.CodedIndexKind
	for k, w := range r.Widths.Coded {
		if w == 4 {
			out = append(out, format.CodedIndexKind(k))
		}
	}

	return out
}

// NewReconstructor creates a reconstructor for tables, interning GUID and new
// blob values into guids and blobs.
func NewReconstructor(tables *TablesHeap, guids *heap.GuidHeap, blobs *heap.BlobHeap, opts ...ReconstructorOption) (*Reconstructor, error) {
	r := &Reconstructor{
		tables:           tables,
		guids:            guids,
		blobs:            blobs,
		strict:           true,
		reconstructBlobs: true,
	}
	if err := options.Apply(r, opts...); err != nil {
		return nil, err
	}

	return r, nil
}

type cellKey struct {
	row *Row
	col int
}

// plan is the outcome of the layout pass.
type plan struct {
	present   []*Table
	dropped   []format.TableType
	mask      uint64
	strings   *heap.StringHeap
	blobs     map[cellKey]uint32
	counts    RowCounts
	heapSizes uint8
	widths    *Widths
	modified  uint64
}

// Reconstruct rebuilds the tables stream.
//
// Tables flagged in MaskSorted are first stable-sorted by their key columns.
// The layout pass drops empty tables, interns every string cell into a new
// #Strings heap in ascending table, row and column order, interns GUID and new
// blob values, optionally rewrites the #Blob heap and then fixes every column
// width. The serialization pass regenerates each row from its cells. The
// model is updated only when both passes succeed; the new string heap is
// returned in the Result for the caller to install.
//
// Returns:
//   - *Result: Layout decisions and the new string heap
//   - error: ErrTableSchemaMismatch, ErrUnresolvedReference or heap errors
func (r *Reconstructor) Reconstruct() (res *Result, err error) {
	restore, err := r.sortTables()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			restore()
		}
	}()

	p, err := r.layout()
	if err != nil {
		return nil, err
	}

	buf := pool.GetTableBuffer()
	defer pool.PutTableBuffer(buf)

	header := r.tables.header
	header.Reserved = 0
	header.Reserved2 = 1
	header.MaskValid = p.mask
	header.HeapOffsetSizes = p.heapSizes

	buf.MustWrite(header.appendTo(make([]byte, 0, HeaderSize)))
	var count [4]byte
	for _, tbl := range p.present {
		le.PutUint32(count[:], p.counts[tbl.typ])
		buf.MustWrite(count[:])
	}

	nulls := 0
	raws := make(map[*Row][]uint32)
	for _, tbl := range p.present {
		for _, row := range tbl.rows {
			raw, n, err := r.writeRow(buf, p, row)
			if err != nil {
				return nil, err
			}
			nulls += n
			raws[row] = raw
		}
	}

	data := buf.Clone()

	// install
	for _, t := range p.dropped {
		r.tables.tables[t] = nil
	}
	for row, raw := range raws {
		row.raw = raw
		s := row.schemaColumns()
		for i := range s {
			if row.cells[i].kind == CellBlobValue {
				row.cells[i] = BlobOffset(p.blobs[cellKey{row, i}])
			}
		}
	}
	for _, tbl := range p.present {
		tbl.clearModified()
	}
	r.tables.header = header
	r.tables.extra = 0
	r.tables.data = data

	return &Result{
		MaskValid:       p.mask,
		HeapOffsetSizes: p.heapSizes,
		Dropped:         p.dropped,
		Strings:         p.strings,
		RowCounts:       p.counts,
		Widths:          p.widths,
		Modified:        p.modified,
		NullReferences:  nulls,
		Size:            uint32(len(data)), //nolint:gosec
	}, nil
}

// sortTables orders every sorted table by its key columns. CustomAttribute
// goes last because its parents may be rows of other sorted tables.
func (r *Reconstructor) sortTables() (func(), error) {
	var order []*Table
	var attrs *Table
	for t, tbl := range r.tables.tables {
		if tbl == nil || tbl.Len() < 2 || len(tbl.schema.SortKey) == 0 {
			continue
		}
		if r.tables.header.MaskSorted&format.TableType(t).Mask() == 0 {
			continue
		}
		if tbl.typ == format.TableCustomAttribute {
			attrs = tbl
			continue
		}
		order = append(order, tbl)
	}
	if attrs != nil {
		order = append(order, attrs)
	}

	var undo []func()
	restore := func() {
		for _, u := range slices.Backward(undo) {
			u()
		}
	}

	for _, tbl := range order {
		keys := make(map[*Row][]uint32, tbl.Len())
		for _, row := range tbl.rows {
			k, err := r.sortKey(tbl, row)
			if err != nil {
				restore()
				return nil, err
			}
			keys[row] = k
		}
		undo = append(undo, tbl.reorder(func(a, b *Row) int {
			return slices.Compare(keys[a], keys[b])
		}))
	}

	return restore, nil
}

func (r *Reconstructor) sortKey(tbl *Table, row *Row) ([]uint32, error) {
	if len(row.cells) != len(tbl.schema.Columns) {
		return nil, fmt.Errorf("%w: %s[%d] has %d cells, schema has %d columns",
			errs.ErrTableSchemaMismatch, tbl.typ, row.index, len(row.cells), len(tbl.schema.Columns))
	}

	key := make([]uint32, len(tbl.schema.SortKey))
	for i, ci := range tbl.schema.SortKey {
		col := tbl.schema.Columns[ci]
		c := row.cells[ci]
		switch {
		case !col.IsReference():
			key[i] = c.u
		case c.kind == CellRef:
			v, err := r.referenceValue(row, col, c)
			if err != nil {
				return nil, err
			}
			key[i] = v
		}
	}

	return key, nil
}

func (r *Reconstructor) layout() (*plan, error) {
	p := &plan{
		strings: heap.NewStringHeap(),
		blobs:   make(map[cellKey]uint32),
	}

	for t, tbl := range r.tables.tables {
		if tbl == nil {
			continue
		}
		if tbl.Len() == 0 {
			p.dropped = append(p.dropped, format.TableType(t))
			continue
		}
		p.present = append(p.present, tbl)
		p.mask |= format.TableType(t).Mask()
		p.counts[t] = uint32(tbl.Len()) //nolint:gosec
		p.modified += tbl.Modified().GetCardinality()
	}

	for _, tbl := range p.present {
		for _, row := range tbl.rows {
			if err := r.internRow(p, tbl, row); err != nil {
				return nil, err
			}
		}
	}

	if r.reconstructBlobs && r.blobs != nil {
		if err := r.blobs.Reconstruct(); err != nil {
			return nil, fmt.Errorf("reconstruct blob heap: %w", err)
		}
	}

	p.heapSizes = r.tables.header.HeapOffsetSizes &^ computedHeapFlags
	if p.strings.IsLarge() {
		p.heapSizes |= format.HeapOffsetStringsLarge
	}
	if r.guids != nil && r.guids.IsLarge() {
		p.heapSizes |= format.HeapOffsetGUIDLarge
	}
	if r.blobs != nil && r.blobs.IsLarge() {
		p.heapSizes |= format.HeapOffsetBlobLarge
	}
	p.widths = NewWidths(p.heapSizes, &p.counts)

	return p, nil
}

func (r *Reconstructor) internRow(p *plan, tbl *Table, row *Row) error {
	if len(row.cells) != len(tbl.schema.Columns) {
		return fmt.Errorf("%w: %s[%d] has %d cells, schema has %d columns",
			errs.ErrTableSchemaMismatch, tbl.typ, row.index, len(row.cells), len(tbl.schema.Columns))
	}

	for i, col := range tbl.schema.Columns {
		c := row.cells[i]
		if !c.accepts(col) {
			return fmt.Errorf("%w: %s[%d].%s (%s) holds a %s cell",
				errs.ErrTableSchemaMismatch, tbl.typ, row.index, col.Name, col.Kind, c.kind)
		}

		switch c.kind {
		case CellString:
			if _, err := p.strings.GetStringOffset(c.s); err != nil {
				return fmt.Errorf("%s[%d].%s: %w", tbl.typ, row.index, col.Name, err)
			}
		case CellGUID:
			if r.guids == nil {
				return fmt.Errorf("%w: %s[%d].%s needs a #GUID heap", errs.ErrStreamNotFound, tbl.typ, row.index, col.Name)
			}
			if _, err := r.guids.GetGuidOffset(c.g); err != nil {
				return err
			}
		case CellBlobValue:
			if r.blobs == nil {
				return fmt.Errorf("%w: %s[%d].%s needs a #Blob heap", errs.ErrStreamNotFound, tbl.typ, row.index, col.Name)
			}
			off, err := r.blobs.GetBlobIndex(c.b)
			if err != nil {
				return fmt.Errorf("%s[%d].%s: %w", tbl.typ, row.index, col.Name, err)
			}
			p.blobs[cellKey{row, i}] = off
		}
	}

	return nil
}

// writeRow appends one row and returns the written column values and the
// number of required references written as 0.
func (r *Reconstructor) writeRow(buf *pool.ByteBuffer, p *plan, row *Row) ([]uint32, int, error) {
	cols := row.schemaColumns()
	raw := make([]uint32, len(cols))
	nulls := 0
	var tmp [4]byte

	for i, col := range cols {
		c := row.cells[i]
		var v uint32
		var err error

		switch col.Kind {
		case ColumnFixed1, ColumnFixed2, ColumnFixed4, ColumnList:
			v = c.u
		case ColumnString:
			v, err = p.strings.GetStringOffset(c.s)
		case ColumnGuid:
			if r.guids != nil {
				v, err = r.guids.GetGuidOffset(c.g)
			}
		case ColumnBlob:
			v = c.u
			if c.kind == CellBlobValue {
				v = p.blobs[cellKey{row, i}]
			}
		case ColumnIndex, ColumnCoded:
			v, err = r.referenceValue(row, col, c)
			if err == nil && v == 0 && !col.Optional && c.kind == CellNull {
				nulls++
			}
		}
		if err != nil {
			return nil, 0, err
		}

		w := p.widths.Column(col)
		if w < 4 && v>>(8*w) != 0 {
			return nil, 0, fmt.Errorf("%w: %s[%d].%s value 0x%x does not fit %d bytes",
				errs.ErrEncodingOverflow, row.table, row.index, col.Name, v, w)
		}
		switch w {
		case 1:
			_ = buf.WriteByte(byte(v))
		case 2:
			le.PutUint16(tmp[:2], uint16(v)) //nolint:gosec
			buf.MustWrite(tmp[:2])
		default:
			le.PutUint32(tmp[:], v)
			buf.MustWrite(tmp[:])
		}
		raw[i] = v
	}

	return raw, nulls, nil
}

func (r *Reconstructor) referenceValue(row *Row, col Column, c Cell) (uint32, error) {
	if c.kind == CellNull {
		if col.Optional || !r.strict {
			return 0, nil
		}

		return 0, fmt.Errorf("%w: %s[%d].%s is a required reference and is null",
			errs.ErrUnresolvedReference, row.table, row.index, col.Name)
	}

	target := c.row
	if target.owner == nil || r.tables.tables[target.table] != target.owner {
		return 0, fmt.Errorf("%w: %s[%d].%s references a %s row outside the model",
			errs.ErrUnresolvedReference, row.table, row.index, col.Name, target.table)
	}

	if col.Kind == ColumnIndex {
		return GetMemberIndex(target.Token()), nil
	}

	return GetCodedIndex(Group(col.Coded), target)
}

func (r *Row) schemaColumns() []Column {
	s, _ := SchemaOf(r.table)
	return s.Columns
}
