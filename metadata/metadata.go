package metadata

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
	"github.com/arloliu/clrmeta/heap"
	"github.com/arloliu/clrmeta/internal/options"
	"github.com/arloliu/clrmeta/section"
	"github.com/arloliu/clrmeta/signature"
	"github.com/arloliu/clrmeta/table"
)

// defaultStreams is the stream order of a model created by New.
var defaultStreams = []string{
	format.StreamTables, format.StreamStrings, format.StreamUserStrings, format.StreamGUID, format.StreamBlob,
}

// Metadata is the in-memory model of one metadata directory.
type Metadata struct {
	header      *section.MetadataHeader
	strings     *heap.StringHeap
	userStrings *heap.UserStringHeap
	guids       *heap.GuidHeap
	blobs       *heap.BlobHeap
	tables      *table.TablesHeap
	// other streams are written back unchanged
	other map[string][]byte

	types       *signature.TypeSystem
	decoder     *signature.Decoder
	specDecoder *signature.Decoder
	resolver    *resolver

	logger           *zap.Logger
	strict           bool
	reconstructBlobs bool
}

func newMetadata(opts []Option) (*Metadata, error) {
	m := &Metadata{
		other:            make(map[string][]byte),
		types:            signature.NewTypeSystem(),
		logger:           zap.NewNop(),
		strict:           true,
		reconstructBlobs: true,
	}
	if err := options.Apply(m, opts...); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metadata) wireDecoder() {
	m.resolver = &resolver{md: m}
	m.decoder = signature.NewDecoder(m.blobs, m.types, m.resolver)
	m.specDecoder = signature.NewDecoder(m.blobs, m.types, &resolver{md: m, shallow: true})
}

// New creates an empty model with the five standard streams and no rows.
func New(opts ...Option) (*Metadata, error) {
	m, err := newMetadata(opts)
	if err != nil {
		return nil, err
	}

	m.header = section.NewMetadataHeader()
	for _, name := range defaultStreams {
		m.header.Streams = append(m.header.Streams, section.StreamHeader{Name: name})
	}
	m.strings = heap.NewStringHeap()
	m.userStrings = heap.NewUserStringHeap()
	m.guids = heap.NewGuidHeap()
	m.blobs = heap.NewBlobHeap()
	m.tables = table.NewTablesHeap()
	m.wireDecoder()

	return m, nil
}

// Load parses a metadata directory.
//
// Every stream is copied out of data, so data may be reused afterwards.
// Streams other than the four heaps and the tables stream are kept and
// written back unchanged.
//
// Parameters:
//   - data: Metadata directory starting at the root signature
//   - opts: Optional configuration
//
// Returns:
//   - *Metadata: The loaded model
//   - error: header errors, ErrStreamOutOfRange if a stream exceeds data,
//     ErrStreamNotFound if there is no tables stream, or table parse errors
func Load(data []byte, opts ...Option) (*Metadata, error) {
	m, err := newMetadata(opts)
	if err != nil {
		return nil, err
	}

	m.header, err = section.ParseMetadataHeader(data)
	if err != nil {
		return nil, err
	}

	var tablesName string
	var tablesData []byte
	for _, sh := range m.header.Streams {
		end := uint64(sh.Offset) + uint64(sh.Size)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("%w: %s at 0x%x size 0x%x, directory is 0x%x bytes",
				errs.ErrStreamOutOfRange, sh.Name, sh.Offset, sh.Size, len(data))
		}
		content := data[sh.Offset:end]

		switch sh.Name {
		case format.StreamStrings:
			if m.strings == nil {
				m.strings = heap.LoadStringHeap(content)
			}
		case format.StreamUserStrings:
			if m.userStrings == nil {
				m.userStrings = heap.LoadUserStringHeap(content)
			}
		case format.StreamGUID:
			if m.guids == nil {
				m.guids = heap.LoadGuidHeap(content)
			}
		case format.StreamBlob:
			if m.blobs == nil {
				m.blobs = heap.LoadBlobHeap(content)
			}
		case format.StreamTables, format.StreamUncompressedTable:
			if tablesData == nil {
				tablesName, tablesData = sh.Name, content
			} else if _, ok := m.other[sh.Name]; !ok {
				m.other[sh.Name] = append([]byte(nil), content...)
			}
		default:
			if _, ok := m.other[sh.Name]; !ok {
				m.other[sh.Name] = append([]byte(nil), content...)
			}
		}
		m.logger.Debug("stream loaded",
			zap.String("name", sh.Name), zap.Uint32("offset", sh.Offset), zap.Uint32("size", sh.Size))
	}

	if tablesData == nil {
		return nil, fmt.Errorf("%w: no %s or %s stream", errs.ErrStreamNotFound, format.StreamTables, format.StreamUncompressedTable)
	}
	if m.strings == nil {
		m.strings = heap.NewStringHeap()
	}
	if m.userStrings == nil {
		m.userStrings = heap.NewUserStringHeap()
	}
	if m.guids == nil {
		m.guids = heap.NewGuidHeap()
	}
	if m.blobs == nil {
		m.blobs = heap.NewBlobHeap()
	}

	m.tables, err = table.ParseTablesHeap(tablesName, tablesData, m.strings, m.guids)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", tablesName, err)
	}
	m.wireDecoder()

	m.logger.Debug("metadata loaded",
		zap.String("version", m.header.Version),
		zap.Int("streams", len(m.header.Streams)),
		zap.Int("tables", len(m.tables.Tables())))

	return m, nil
}

// Header returns the metadata root header. Stream headers are refreshed by
// Rebuild.
func (m *Metadata) Header() *section.MetadataHeader { return m.header }

// Strings returns the #Strings heap. Rebuild replaces it.
func (m *Metadata) Strings() *heap.StringHeap { return m.strings }

// UserStrings returns the #US heap.
func (m *Metadata) UserStrings() *heap.UserStringHeap { return m.userStrings }

// Guids returns the #GUID heap.
func (m *Metadata) Guids() *heap.GuidHeap { return m.guids }

// Blobs returns the #Blob heap.
func (m *Metadata) Blobs() *heap.BlobHeap { return m.blobs }

// Tables returns the tables stream model.
func (m *Metadata) Tables() *table.TablesHeap { return m.tables }

// Signatures returns a signature decoder reading this model's #Blob heap.
func (m *Metadata) Signatures() *signature.Decoder { return m.decoder }

// TypeSystem returns the primitive type singletons of this model.
func (m *Metadata) TypeSystem() *signature.TypeSystem { return m.types }

// Stream returns the contents of a stream that is not one of the heaps or the
// tables stream.
func (m *Metadata) Stream(name string) ([]byte, bool) {
	b, ok := m.other[name]
	return b, ok
}

// ClearCache drops the decoded values cached by every heap.
func (m *Metadata) ClearCache() {
	m.strings.ClearCache()
	m.userStrings.ClearCache()
	m.guids.ClearCache()
	m.blobs.ClearCache()
}

// streamContent returns the current contents of the named stream.
func (m *Metadata) streamContent(name string) ([]byte, bool) {
	switch name {
	case format.StreamStrings:
		return m.strings.Bytes(), true
	case format.StreamUserStrings:
		return m.userStrings.Bytes(), true
	case format.StreamGUID:
		return m.guids.Bytes(), true
	case format.StreamBlob:
		return m.blobs.Bytes(), true
	case m.tables.Name():
		return m.tables.Bytes(), true
	}

	return m.Stream(name)
}

// pendingBlob serves the contents of a BlobValue cell that has not been
// interned into the #Blob heap yet.
type pendingBlob []byte

func (p pendingBlob) GetBlob(uint32) ([]byte, error) { return p, nil }

// blobDecoder returns a decoder and offset reading the blob held by c, which
// may be an existing heap offset or a not yet interned value.
func (m *Metadata) blobDecoder(c table.Cell, shallow bool) (*signature.Decoder, uint32) {
	if c.Kind() == table.CellBlobValue {
		r := m.resolver
		if shallow {
			r = &resolver{md: m, shallow: true}
		}

		return signature.NewDecoder(pendingBlob(c.Blob()), m.types, r), 1
	}
	if shallow {
		return m.specDecoder, c.Uint()
	}

	return m.decoder, c.Uint()
}
