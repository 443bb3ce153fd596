package section

// StreamSize is the name and unpadded content size of one stream.
type StreamSize struct {
	Name string
	Size uint32
}

// Layout is the placement of every stream in a metadata directory.
type Layout struct {
	// HeaderSize is the size of the root header plus all stream headers; the
	// first stream starts here.
	HeaderSize uint32
	Streams    []StreamHeader
	// TotalSize is the size of the whole metadata directory.
	TotalSize uint32
}

// CalculateLayout places streams one after another behind the headers of h.
//
// The root prolog comes from h; the stream headers are computed from streams,
// so h.Streams is not consulted. Each stream size is padded to 4 bytes.
//
// Parameters:
//   - h: Root header providing the version string
//   - streams: Streams in directory order
//
// Returns:
//   - *Layout: Offsets and padded sizes of every stream
func CalculateLayout(h *MetadataHeader, streams []StreamSize) *Layout {
	l := &Layout{
		HeaderSize: h.PrologSize(),
		Streams:    make([]StreamHeader, len(streams)),
	}
	for i, s := range streams {
		l.Streams[i] = StreamHeader{Name: s.Name, Size: AlignSize(s.Size)}
		l.HeaderSize += l.Streams[i].HeaderSize()
	}

	offset := l.HeaderSize
	for i := range l.Streams {
		l.Streams[i].Offset = offset
		offset += l.Streams[i].Size
	}
	l.TotalSize = offset

	return l
}

// Apply installs the computed stream headers into h.
func (l *Layout) Apply(h *MetadataHeader) {
	h.Streams = make([]StreamHeader, len(l.Streams))
	copy(h.Streams, l.Streams)
}
