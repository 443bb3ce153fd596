package heap

// LargeIndexThreshold is the heap size at which indices into the heap widen
// from 2 to 4 bytes.
const LargeIndexThreshold = 0xFFFF

// stream holds the bytes shared by every heap kind.
type stream struct {
	name string
	data []byte
}

func newStream(name string, data []byte) stream {
	owned := make([]byte, len(data))
	copy(owned, data)

	return stream{name: name, data: owned}
}

// Name returns the stream name, e.g. "#Blob".
func (s *stream) Name() string {
	return s.name
}

// Size returns the current size of the heap in bytes.
func (s *stream) Size() uint32 {
	return uint32(len(s.data)) //nolint:gosec
}

// IndexSize returns the width in bytes of an index into this heap: 4 when the
// heap holds LargeIndexThreshold bytes or more, otherwise 2.
func (s *stream) IndexSize() int {
	if s.Size() >= LargeIndexThreshold {
		return 4
	}

	return 2
}

// IsLarge reports whether IndexSize is 4.
func (s *stream) IsLarge() bool {
	return s.IndexSize() == 4
}

// Bytes returns the heap contents. The slice is only valid until the next
// append or reconstruction and must not be modified.
func (s *stream) Bytes() []byte {
	return s.data
}
