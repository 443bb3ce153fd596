package section

import (
	"fmt"
	"time"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
)

// SnapshotHeader is the fixed-size header at the start of a metadata snapshot.
type SnapshotHeader struct {
	Magic       uint32                 // byte offset 0-3
	Version     uint16                 // byte offset 4-5
	Compression format.CompressionType // byte offset 6
	Reserved    uint8                  // byte offset 7
	// RawSize is the size of the metadata directory before compression.
	RawSize uint32 // byte offset 8-11
	// PayloadSize is the size of the (possibly compressed) payload that
	// follows the header.
	PayloadSize uint32 // byte offset 12-15
	// Checksum is the xxHash64 digest of the uncompressed metadata.
	Checksum uint64 // byte offset 16-23
	// CreatedAt is the creation time in unix microseconds.
	CreatedAt int64 // byte offset 24-31
}

// NewSnapshotHeader creates a header for a snapshot taken at createdAt.
// Sizes and checksum are filled in by the snapshot encoder.
func NewSnapshotHeader(compression format.CompressionType, createdAt time.Time) *SnapshotHeader {
	return &SnapshotHeader{
		Magic:       SnapshotMagic,
		Version:     SnapshotVersion,
		Compression: compression,
		CreatedAt:   createdAt.UnixMicro(),
	}
}

// Parse parses the header from a byte slice.
//
// Parameters:
//   - data: Byte slice containing the header (at least 32 bytes)
//
// Returns:
//   - error: ErrInvalidHeaderSize if data is too short, ErrInvalidSnapshot if
//     the magic number or version is unknown
func (h *SnapshotHeader) Parse(data []byte) error {
	if len(data) < SnapshotHeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	h.Magic = engine.Uint32(data[0:4])
	h.Version = engine.Uint16(data[4:6])
	h.Compression = format.CompressionType(data[6])
	h.Reserved = data[7]
	h.RawSize = engine.Uint32(data[8:12])
	h.PayloadSize = engine.Uint32(data[12:16])
	h.Checksum = engine.Uint64(data[16:24])
	h.CreatedAt = int64(engine.Uint64(data[24:32])) //nolint:gosec

	if h.Magic != SnapshotMagic {
		return fmt.Errorf("%w: bad magic 0x%08x", errs.ErrInvalidSnapshot, h.Magic)
	}
	if h.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", errs.ErrInvalidSnapshot, h.Version)
	}

	return nil
}

// Bytes serializes the header into a byte slice.
func (h *SnapshotHeader) Bytes() []byte {
	b := make([]byte, SnapshotHeaderSize)

	engine.PutUint32(b[0:4], h.Magic)
	engine.PutUint16(b[4:6], h.Version)
	b[6] = uint8(h.Compression)
	b[7] = h.Reserved
	engine.PutUint32(b[8:12], h.RawSize)
	engine.PutUint32(b[12:16], h.PayloadSize)
	engine.PutUint64(b[16:24], h.Checksum)
	engine.PutUint64(b[24:32], uint64(h.CreatedAt)) //nolint:gosec

	return b
}

// CreatedAtTime returns the creation time as a time.Time.
func (h *SnapshotHeader) CreatedAtTime() time.Time {
	return time.UnixMicro(h.CreatedAt)
}
