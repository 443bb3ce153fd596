package table

import (
	"fmt"
	"math/bits"

	"github.com/google/uuid"

	"github.com/arloliu/clrmeta/endian"
	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
)

// HeaderSize is the fixed size of the tables stream header.
const HeaderSize = 24

// DefaultMaskSorted is the MaskSorted word written by common compilers.
const DefaultMaskSorted uint64 = 0x000016003301FA00

var le = endian.GetLittleEndianEngine()

// Header is the fixed header at the start of the #~ stream (ECMA-335 II.24.2.6).
type Header struct {
	Reserved        uint32 // byte offset 0-3, always 0
	MajorVersion    uint8  // byte offset 4
	MinorVersion    uint8  // byte offset 5
	HeapOffsetSizes uint8  // byte offset 6
	Reserved2       uint8  // byte offset 7, always 1
	MaskValid       uint64 // byte offset 8-15
	MaskSorted      uint64 // byte offset 16-23
}

// Parse parses the header from a byte slice.
//
// Parameters:
//   - data: Byte slice holding at least HeaderSize bytes
//
// Returns:
//   - error: ErrInvalidHeaderSize if data is too short
func (h *Header) Parse(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: tables header needs %d bytes, got %d", errs.ErrInvalidHeaderSize, HeaderSize, len(data))
	}

	h.Reserved = le.Uint32(data[0:4])
	h.MajorVersion = data[4]
	h.MinorVersion = data[5]
	h.HeapOffsetSizes = data[6]
	h.Reserved2 = data[7]
	h.MaskValid = le.Uint64(data[8:16])
	h.MaskSorted = le.Uint64(data[16:24])

	return nil
}

// Bytes serializes the header.
func (h *Header) Bytes() []byte {
	return h.appendTo(make([]byte, 0, HeaderSize))
}

func (h *Header) appendTo(b []byte) []byte {
	b = le.AppendUint32(b, h.Reserved)
	b = append(b, h.MajorVersion, h.MinorVersion, h.HeapOffsetSizes, h.Reserved2)
	b = le.AppendUint64(b, h.MaskValid)
	b = le.AppendUint64(b, h.MaskSorted)

	return b
}

// TableCount returns the number of tables flagged present in MaskValid.
func (h *Header) TableCount() int {
	return bits.OnesCount64(h.MaskValid)
}

// StringSource resolves #Strings offsets while parsing.
type StringSource interface {
	GetStringByOffset(offset uint32) (string, error)
}

// GuidSource resolves #GUID indices while parsing.
type GuidSource interface {
	GetGuidByOffset(index uint32) (uuid.UUID, error)
}

// TablesHeap is the in-memory model of the #~ (or #-) stream.
type TablesHeap struct {
	name   string
	header Header
	extra  uint32
	tables [format.TableCount]*Table
	data   []byte
}

// NewTablesHeap creates an empty tables stream with version 2.0 defaults.
func NewTablesHeap() *TablesHeap {
	return &TablesHeap{
		name: format.StreamTables,
		header: Header{
			MajorVersion: 2,
			Reserved2:    1,
			MaskSorted:   DefaultMaskSorted,
		},
	}
}

// ParseTablesHeap parses a tables stream and materializes every row.
//
// String and GUID columns are decoded through strs and guids. Index and coded
// index columns become references to the target rows; a zero value becomes a
// null cell. Blob columns keep their heap offsets.
//
// Parameters:
//   - name: Stream name, "#~" or "#-"
//   - data: Stream contents (copied)
//   - strs: #Strings heap
//   - guids: #GUID heap
//
// Returns:
//   - *TablesHeap: The parsed model
//   - error: ErrInvalidHeaderSize, ErrStreamOutOfRange for truncated data,
//     ErrTableSchemaMismatch for unknown tables, ErrUnresolvedReference for
//     out-of-range references, or heap decoding errors
func ParseTablesHeap(name string, data []byte, strs StringSource, guids GuidSource) (*TablesHeap, error) {
	th := &TablesHeap{name: name}
	if err := th.header.Parse(data); err != nil {
		return nil, err
	}
	if th.header.MaskValid>>format.TableCount != 0 {
		return nil, fmt.Errorf("%w: MaskValid 0x%016x flags unknown tables", errs.ErrTableSchemaMismatch, th.header.MaskValid)
	}

	pos := HeaderSize
	var counts RowCounts
	for t := range format.TableCount {
		if th.header.MaskValid&format.TableType(t).Mask() == 0 {
			continue
		}
		if pos+4 > len(data) {
			return nil, fmt.Errorf("%w: row count of %s", errs.ErrStreamOutOfRange, format.TableType(t))
		}
		counts[t] = le.Uint32(data[pos:])
		pos += 4
	}
	if th.header.HeapOffsetSizes&format.HeapOffsetExtraData != 0 {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("%w: extra data word", errs.ErrStreamOutOfRange)
		}
		th.extra = le.Uint32(data[pos:])
		pos += 4
	}

	widths := NewWidths(th.header.HeapOffsetSizes, &counts)

	// first pass: raw values and row shells, so references can point forward
	for t := range format.TableCount {
		if th.header.MaskValid&format.TableType(t).Mask() == 0 {
			continue
		}
		tbl := newTable(format.TableType(t))
		rowSize := int(widths.RowSize(tbl.schema))
		if uint64(pos)+uint64(counts[t])*uint64(rowSize) > uint64(len(data)) {
			return nil, fmt.Errorf("%w: %s needs %d rows of %d bytes at 0x%x, stream has %d bytes",
				errs.ErrStreamOutOfRange, tbl.typ, counts[t], rowSize, pos, len(data))
		}

		tbl.rows = make([]*Row, counts[t])
		for i := range tbl.rows {
			raw := make([]uint32, len(tbl.schema.Columns))
			for c, col := range tbl.schema.Columns {
				w := int(widths.Column(col))
				raw[c] = readColumn(data[pos:pos+w], w)
				pos += w
			}
			tbl.rows[i] = &Row{table: tbl.typ, owner: tbl, index: uint32(i + 1), raw: raw} //nolint:gosec
		}
		th.tables[t] = tbl
	}

	for _, tbl := range th.tables {
		if tbl == nil {
			continue
		}
		for _, row := range tbl.rows {
			cells, err := th.materialize(row, strs, guids)
			if err != nil {
				return nil, err
			}
			row.cells = cells
		}
	}

	th.data = make([]byte, len(data))
	copy(th.data, data)

	return th, nil
}

func readColumn(b []byte, width int) uint32 {
	switch width {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(le.Uint16(b))
	default:
		return le.Uint32(b)
	}
}

func (th *TablesHeap) materialize(row *Row, strs StringSource, guids GuidSource) ([]Cell, error) {
	schema, _ := SchemaOf(row.table)
	cells := make([]Cell, len(schema.Columns))

	for i, col := range schema.Columns {
		v := row.raw[i]
		switch col.Kind {
		case ColumnFixed1, ColumnFixed2, ColumnFixed4, ColumnList:
			cells[i] = U(v)
		case ColumnString:
			s, err := strs.GetStringByOffset(v)
			if err != nil {
				return nil, fmt.Errorf("%s[%d].%s: %w", row.table, row.index, col.Name, err)
			}
			cells[i] = Str(s)
		case ColumnGuid:
			g, err := guids.GetGuidByOffset(v)
			if err != nil {
				return nil, fmt.Errorf("%s[%d].%s: %w", row.table, row.index, col.Name, err)
			}
			cells[i] = GUID(g)
		case ColumnBlob:
			cells[i] = BlobOffset(v)
		case ColumnIndex:
			target, err := th.lookup(col.Target, v)
			if err != nil {
				return nil, fmt.Errorf("%s[%d].%s: %w", row.table, row.index, col.Name, err)
			}
			cells[i] = Ref(target)
		case ColumnCoded:
			if v == 0 {
				cells[i] = Null()
				continue
			}
			t, rid, err := Group(col.Coded).Decode(v)
			if err != nil {
				return nil, fmt.Errorf("%s[%d].%s: %w", row.table, row.index, col.Name, err)
			}
			target, err := th.lookup(t, rid)
			if err != nil {
				return nil, fmt.Errorf("%s[%d].%s: %w", row.table, row.index, col.Name, err)
			}
			cells[i] = Ref(target)
		}
	}

	return cells, nil
}

func (th *TablesHeap) lookup(t format.TableType, rid uint32) (*Row, error) {
	if rid == 0 {
		return nil, nil
	}
	tbl := th.tables[t]
	if tbl == nil {
		return nil, fmt.Errorf("%w: %s is not present", errs.ErrUnresolvedReference, t)
	}

	return tbl.Row(rid)
}

// Name returns the stream name.
func (th *TablesHeap) Name() string { return th.name }

// Header returns a copy of the stream header as last parsed or rebuilt.
func (th *TablesHeap) Header() Header { return th.header }

// Table returns the table t if the model holds it.
func (th *TablesHeap) Table(t format.TableType) (*Table, bool) {
	if !t.IsValid() || th.tables[t] == nil {
		return nil, false
	}

	return th.tables[t], true
}

// HasTable reports whether the model holds table t.
func (th *TablesHeap) HasTable(t format.TableType) bool {
	_, ok := th.Table(t)
	return ok
}

// GetOrCreateTable returns table t, adding an empty one to the model if needed.
func (th *TablesHeap) GetOrCreateTable(t format.TableType) (*Table, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: no table with tag 0x%02x", errs.ErrTableSchemaMismatch, uint8(t))
	}
	if th.tables[t] == nil {
		th.tables[t] = newTable(t)
	}

	return th.tables[t], nil
}

// Tables returns the tables held by the model in ascending tag order.
func (th *TablesHeap) Tables() []*Table {
	out := make([]*Table, 0, format.TableCount)
	for _, t := range th.tables {
		if t != nil {
			out = append(out, t)
		}
	}

	return out
}

// RowCounts returns the current row count of every table slot.
func (th *TablesHeap) RowCounts() RowCounts {
	var counts RowCounts
	for t, tbl := range th.tables {
		if tbl != nil {
			counts[t] = uint32(tbl.Len()) //nolint:gosec
		}
	}

	return counts
}

// MaskValid returns the presence bitmask of the serialized stream.
func (th *TablesHeap) MaskValid() uint64 { return th.header.MaskValid }

// MaskSorted returns the sorted-tables bitmask of the serialized stream.
func (th *TablesHeap) MaskSorted() uint64 { return th.header.MaskSorted }

// HeapOffsetSizes returns the heap width flags of the serialized stream.
func (th *TablesHeap) HeapOffsetSizes() uint8 { return th.header.HeapOffsetSizes }

// Bytes returns the serialized stream as last parsed or rebuilt. The slice
// must not be modified.
func (th *TablesHeap) Bytes() []byte { return th.data }

// Size returns the size of the serialized stream.
func (th *TablesHeap) Size() uint32 { return uint32(len(th.data)) } //nolint:gosec
