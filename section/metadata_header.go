package section

import (
	"bytes"
	"fmt"

	"github.com/arloliu/clrmeta/endian"
	"github.com/arloliu/clrmeta/errs"
)

var engine = endian.GetLittleEndianEngine()

// MetadataHeader is the root header of a metadata directory together with
// its stream headers.
type MetadataHeader struct {
	Signature    uint32 // byte offset 0-3
	MajorVersion uint16 // byte offset 4-5
	MinorVersion uint16 // byte offset 6-7
	Reserved     uint32 // byte offset 8-11
	// Version is the runtime version string, stored NUL padded to 4 bytes.
	Version string
	Flags   uint16
	Streams []StreamHeader
}

// NewMetadataHeader creates a root header with the default version string and
// no streams.
func NewMetadataHeader() *MetadataHeader {
	return &MetadataHeader{
		Signature:    MetadataSignature,
		MajorVersion: MetadataMajorVersion,
		MinorVersion: MetadataMinorVersion,
		Version:      DefaultVersion,
	}
}

// versionLength returns the padded on-disk length of the version string.
func (h *MetadataHeader) versionLength() uint32 {
	return AlignSize(uint32(len(h.Version)) + 1) //nolint:gosec
}

// PrologSize returns the size of the root header without the stream headers.
func (h *MetadataHeader) PrologSize() uint32 {
	return MetadataHeaderFixedSize + h.versionLength() + MetadataTrailerSize
}

// HeaderSize returns the size of the root header and every stream header.
func (h *MetadataHeader) HeaderSize() uint32 {
	n := h.PrologSize()
	for i := range h.Streams {
		n += h.Streams[i].HeaderSize()
	}

	return n
}

// Stream returns the header of the named stream.
func (h *MetadataHeader) Stream(name string) (*StreamHeader, bool) {
	for i := range h.Streams {
		if h.Streams[i].Name == name {
			return &h.Streams[i], true
		}
	}

	return nil, false
}

// Parse parses the root header and the stream headers that follow it.
//
// Parameters:
//   - data: Metadata directory starting at the root signature
//
// Returns:
//   - error: ErrInvalidMetadataSignature if the signature is wrong,
//     ErrInvalidHeaderSize if data ends inside a header
func (h *MetadataHeader) Parse(data []byte) error {
	if len(data) < MetadataHeaderFixedSize {
		return fmt.Errorf("%w: metadata root needs %d bytes, got %d", errs.ErrInvalidHeaderSize, MetadataHeaderFixedSize, len(data))
	}

	h.Signature = engine.Uint32(data[0:4])
	if h.Signature != MetadataSignature {
		return fmt.Errorf("%w: 0x%08x", errs.ErrInvalidMetadataSignature, h.Signature)
	}
	h.MajorVersion = engine.Uint16(data[4:6])
	h.MinorVersion = engine.Uint16(data[6:8])
	h.Reserved = engine.Uint32(data[8:12])

	length := engine.Uint32(data[12:16])
	if length > MaxVersionLength+1 {
		return fmt.Errorf("%w: version string length %d", errs.ErrInvalidHeaderSize, length)
	}
	end := MetadataHeaderFixedSize + int(length)
	if len(data) < end+MetadataTrailerSize {
		return fmt.Errorf("%w: metadata root truncated at 0x%x", errs.ErrInvalidHeaderSize, len(data))
	}

	version := data[MetadataHeaderFixedSize:end]
	if i := bytes.IndexByte(version, 0); i >= 0 {
		version = version[:i]
	}
	h.Version = string(version)
	h.Flags = engine.Uint16(data[end : end+2])
	count := int(engine.Uint16(data[end+2 : end+4]))

	pos := end + MetadataTrailerSize
	h.Streams = make([]StreamHeader, count)
	for i := range h.Streams {
		n, err := h.Streams[i].Parse(data[pos:])
		if err != nil {
			return fmt.Errorf("stream header %d: %w", i, err)
		}
		pos += n
	}

	return nil
}

// Bytes serializes the root header and the stream headers.
func (h *MetadataHeader) Bytes() []byte {
	b := make([]byte, 0, h.HeaderSize())

	b = engine.AppendUint32(b, h.Signature)
	b = engine.AppendUint16(b, h.MajorVersion)
	b = engine.AppendUint16(b, h.MinorVersion)
	b = engine.AppendUint32(b, h.Reserved)

	length := h.versionLength()
	b = engine.AppendUint32(b, length)
	b = append(b, h.Version...)
	b = append(b, make([]byte, int(length)-len(h.Version))...)

	b = engine.AppendUint16(b, h.Flags)
	b = engine.AppendUint16(b, uint16(len(h.Streams))) //nolint:gosec
	for i := range h.Streams {
		b = h.Streams[i].appendTo(b)
	}

	return b
}

// ParseMetadataHeader parses a MetadataHeader from a byte slice.
func ParseMetadataHeader(data []byte) (*MetadataHeader, error) {
	h := &MetadataHeader{}
	if err := h.Parse(data); err != nil {
		return nil, err
	}

	return h, nil
}
