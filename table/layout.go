package table

import (
	"github.com/arloliu/clrmeta/format"
)

// RowCounts holds the row count of every table slot.
type RowCounts [format.TableCount]uint32

// Widths holds the byte width of every column class for one serialization.
type Widths struct {
	String uint32
	Guid   uint32
	Blob   uint32
	Table  [format.TableCount]uint32
	Coded  [format.CodedIndexKindCount]uint32
}

// NewWidths derives column widths from the heap size flags and row counts.
func NewWidths(heapSizes uint8, counts *RowCounts) *Widths {
	w := &Widths{String: 2, Guid: 2, Blob: 2}
	if heapSizes&format.HeapOffsetStringsLarge != 0 {
		w.String = 4
	}
	if heapSizes&format.HeapOffsetGUIDLarge != 0 {
		w.Guid = 4
	}
	if heapSizes&format.HeapOffsetBlobLarge != 0 {
		w.Blob = 4
	}
	for t := range format.TableCount {
		w.Table[t] = 2
		if counts[t] > LargeTableThreshold {
			w.Table[t] = 4
		}
	}
	for k := range format.CodedIndexKindCount {
		w.Coded[k] = 2
		if Group(format.CodedIndexKind(k)).IsLarge(counts) {
			w.Coded[k] = 4
		}
	}

	return w
}

// Column returns the byte width of col.
func (w *Widths) Column(col Column) uint32 {
	switch col.Kind {
	case ColumnFixed1:
		return 1
	case ColumnFixed2:
		return 2
	case ColumnFixed4:
		return 4
	case ColumnString:
		return w.String
	case ColumnGuid:
		return w.Guid
	case ColumnBlob:
		return w.Blob
	case ColumnIndex, ColumnList:
		return w.Table[col.Target]
	case ColumnCoded:
		return w.Coded[col.Coded]
	}

	return 0
}

// RowSize returns the byte size of one row of s.
func (w *Widths) RowSize(s *Schema) uint32 {
	var n uint32
	for _, c := range s.Columns {
		n += w.Column(c)
	}

	return n
}
