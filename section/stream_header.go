package section

import (
	"bytes"
	"fmt"

	"github.com/arloliu/clrmeta/errs"
)

// StreamHeader locates one metadata stream relative to the metadata root.
type StreamHeader struct {
	Offset uint32 // byte offset 0-3
	Size   uint32 // byte offset 4-7
	Name   string // NUL terminated, padded to 4 bytes
}

// HeaderSize returns the serialized size of the header.
func (s *StreamHeader) HeaderSize() uint32 {
	return StreamHeaderFixedSize + AlignSize(uint32(len(s.Name))+1) //nolint:gosec
}

// Parse parses a stream header and returns the number of bytes it occupies.
//
// Returns:
//   - int: Bytes consumed, including name padding
//   - error: ErrInvalidHeaderSize if data ends early or the name is not
//     terminated within MaxStreamNameLength bytes
func (s *StreamHeader) Parse(data []byte) (int, error) {
	if len(data) < StreamHeaderFixedSize+1 {
		return 0, fmt.Errorf("%w: stream header needs at least %d bytes, got %d",
			errs.ErrInvalidHeaderSize, StreamHeaderFixedSize+1, len(data))
	}

	s.Offset = engine.Uint32(data[0:4])
	s.Size = engine.Uint32(data[4:8])

	name := data[StreamHeaderFixedSize:min(len(data), StreamHeaderFixedSize+MaxStreamNameLength)]
	end := bytes.IndexByte(name, 0)
	if end < 0 {
		return 0, fmt.Errorf("%w: unterminated stream name", errs.ErrInvalidHeaderSize)
	}
	s.Name = string(name[:end])

	n := int(s.HeaderSize())
	if n > len(data) {
		return 0, fmt.Errorf("%w: stream header %q truncated", errs.ErrInvalidHeaderSize, s.Name)
	}

	return n, nil
}

// Bytes serializes the header.
func (s *StreamHeader) Bytes() []byte {
	return s.appendTo(make([]byte, 0, s.HeaderSize()))
}

func (s *StreamHeader) appendTo(b []byte) []byte {
	b = engine.AppendUint32(b, s.Offset)
	b = engine.AppendUint32(b, s.Size)
	b = append(b, s.Name...)

	return append(b, make([]byte, int(AlignSize(uint32(len(s.Name))+1))-len(s.Name))...) //nolint:gosec
}
