package snapshot

import (
	"fmt"
	"math"
	"time"

	"github.com/arloliu/clrmeta/compress"
	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
	"github.com/arloliu/clrmeta/internal/hash"
	"github.com/arloliu/clrmeta/internal/options"
	"github.com/arloliu/clrmeta/internal/pool"
	"github.com/arloliu/clrmeta/section"
)

// Encode wraps a serialized metadata directory into a snapshot.
//
// Parameters:
//   - data: Metadata directory, e.g. the result of metadata.Metadata.Bytes
//   - opts: Optional configuration (WithCompression, WithCreatedAt)
//
// Returns:
//   - []byte: Header followed by the compressed payload
//   - error: option errors, compression errors, or ErrEncodingOverflow if
//     data or its compressed form exceed 4 GiB
func Encode(data []byte, opts ...Option) ([]byte, error) {
	cfg := &config{compression: format.CompressionZstd}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.createdAt.IsZero() {
		cfg.createdAt = time.Now()
	}
	if uint64(len(data)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: directory of %d bytes", errs.ErrEncodingOverflow, len(data))
	}

	codec, err := compress.CreateCodec(cfg.compression, "snapshot")
	if err != nil {
		return nil, err
	}
	payload, err := codec.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: payload of %d bytes", errs.ErrEncodingOverflow, len(payload))
	}

	h := section.NewSnapshotHeader(cfg.compression, cfg.createdAt)
	h.RawSize = uint32(len(data))        //nolint:gosec
	h.PayloadSize = uint32(len(payload)) //nolint:gosec
	h.Checksum = hash.Sum(data)

	buf := pool.GetHeapBuffer()
	defer pool.PutHeapBuffer(buf)

	buf.Grow(section.SnapshotHeaderSize + len(payload))
	buf.MustWrite(h.Bytes())
	buf.MustWrite(payload)

	return buf.Clone(), nil
}

// Decode unwraps a snapshot and verifies its checksum.
//
// Returns:
//   - []byte: The metadata directory
//   - *section.SnapshotHeader: The parsed header
//   - error: ErrInvalidHeaderSize or ErrInvalidSnapshot for a damaged header
//     or payload, ErrChecksumMismatch if the directory does not match the
//     recorded digest
func Decode(data []byte) ([]byte, *section.SnapshotHeader, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, nil, err
	}

	payload := data[section.SnapshotHeaderSize:]
	if uint64(len(payload)) < uint64(h.PayloadSize) {
		return nil, nil, fmt.Errorf("%w: payload truncated to %d of %d bytes",
			errs.ErrInvalidSnapshot, len(payload), h.PayloadSize)
	}
	payload = payload[:h.PayloadSize]

	codec, err := compress.GetCodec(h.Compression)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errs.ErrInvalidSnapshot, err)
	}
	var raw []byte
	if sd, ok := codec.(compress.SizedDecompressor); ok {
		raw, err = sd.DecompressSized(payload, int(h.RawSize))
	} else {
		raw, err = codec.Decompress(payload)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errs.ErrInvalidSnapshot, err)
	}
	if uint64(len(raw)) != uint64(h.RawSize) {
		return nil, nil, fmt.Errorf("%w: directory is %d bytes, header says %d",
			errs.ErrInvalidSnapshot, len(raw), h.RawSize)
	}
	if sum := hash.Sum(raw); sum != h.Checksum {
		return nil, nil, fmt.Errorf("%w: got 0x%016x, want 0x%016x", errs.ErrChecksumMismatch, sum, h.Checksum)
	}
	if h.Compression == format.CompressionNone {
		raw = append([]byte(nil), raw...)
	}

	return raw, h, nil
}

// ReadHeader parses the snapshot header without touching the payload.
func ReadHeader(data []byte) (*section.SnapshotHeader, error) {
	h := &section.SnapshotHeader{}
	if err := h.Parse(data); err != nil {
		return nil, err
	}

	return h, nil
}

// Stats reports the compression statistics recorded in h.
func Stats(h *section.SnapshotHeader) compress.CompressionStats {
	return compress.CompressionStats{
		Algorithm:      h.Compression,
		OriginalSize:   int64(h.RawSize),
		CompressedSize: int64(h.PayloadSize),
	}
}
