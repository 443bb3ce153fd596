package metadata

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arloliu/clrmeta/format"
	"github.com/arloliu/clrmeta/section"
	"github.com/arloliu/clrmeta/table"
)

// Rebuild regenerates the tables stream and the #Strings heap from the model
// and recomputes the stream layout.
//
// The tables stream is rebuilt by table.Reconstructor: empty tables are
// dropped, every row is regenerated from its cells and all index widths are
// recomputed. The new #Strings heap is installed and the stream headers are
// reassigned sequential, 4-byte aligned offsets. When the reconstruction
// fails the previous streams stay installed.
//
// Returns:
//   - *section.Layout: The new stream placement
//   - error: ErrTableSchemaMismatch, ErrUnresolvedReference or heap errors
func (m *Metadata) Rebuild() (*section.Layout, error) {
	started := time.Now()

	r, err := table.NewReconstructor(m.tables, m.guids, m.blobs,
		table.WithStrictReferences(m.strict),
		table.WithBlobReconstruction(m.reconstructBlobs))
	if err != nil {
		return nil, err
	}

	res, err := r.Reconstruct()
	if err != nil {
		m.logger.Debug("tables reconstruction failed", zap.Error(err))
		return nil, err
	}
	m.strings = res.Strings

	for _, t := range res.Dropped {
		m.logger.Debug("dropped empty table", zap.Stringer("table", t))
	}
	if res.NullReferences > 0 {
		m.logger.Warn("required references written as null", zap.Int("count", res.NullReferences))
	}
	m.logger.Debug("tables layout",
		zap.String("mask_valid", fmt.Sprintf("0x%016x", res.MaskValid)),
		zap.String("heap_sizes", fmt.Sprintf("0x%02x", res.HeapOffsetSizes)),
		zap.Uint32("string_index", res.Widths.String),
		zap.Uint32("guid_index", res.Widths.Guid),
		zap.Uint32("blob_index", res.Widths.Blob),
		zap.Stringers("large_coded_indices", res.LargeCodedIndices()))

	layout := section.CalculateLayout(m.header, m.streamSizes())
	layout.Apply(m.header)

	for _, s := range layout.Streams {
		m.logger.Debug("stream placed",
			zap.String("name", s.Name), zap.Uint32("offset", s.Offset), zap.Uint32("size", s.Size))
	}
	m.logger.Info("metadata rebuilt",
		zap.Int("tables", len(m.tables.Tables())),
		zap.Uint64("modified_rows", res.Modified),
		zap.Uint32("size", layout.TotalSize),
		zap.Duration("elapsed", time.Since(started)))

	return layout, nil
}

// streamSizes lists the streams to write in header order, adding any heap
// that holds data but has no header yet.
func (m *Metadata) streamSizes() []section.StreamSize {
	seen := make(map[string]bool, len(m.header.Streams))
	sizes := make([]section.StreamSize, 0, len(m.header.Streams)+len(defaultStreams))

	add := func(name string, content []byte) {
		seen[name] = true
		sizes = append(sizes, section.StreamSize{Name: name, Size: uint32(len(content))}) //nolint:gosec
	}

	for _, sh := range m.header.Streams {
		if seen[sh.Name] {
			continue
		}
		content, ok := m.streamContent(sh.Name)
		if !ok {
			continue
		}
		add(sh.Name, content)
	}

	if !seen[m.tables.Name()] {
		add(m.tables.Name(), m.tables.Bytes())
	}
	heaps := []struct {
		name string
		used bool
	}{
		{format.StreamStrings, m.strings.Size() > 1},
		{format.StreamUserStrings, m.userStrings.Size() > 1},
		{format.StreamGUID, m.guids.Size() > 0},
		{format.StreamBlob, m.blobs.Size() > 1},
	}
	for _, h := range heaps {
		if h.used && !seen[h.name] {
			content, _ := m.streamContent(h.name)
			add(h.name, content)
		}
	}

	return sizes
}
