package encoding

import (
	"fmt"
	"math"

	"github.com/arloliu/clrmeta/endian"
	"github.com/arloliu/clrmeta/errs"
)

// BlobReader is a little-endian cursor over a single blob.
//
// All reads are bounds checked; a read past the end of the blob returns
// ErrMalformedEncoding and leaves the cursor unchanged.
//
// BlobReader implements io.ByteReader so it can be passed to ReadCompressedUInt32.
type BlobReader struct {
	data   []byte
	pos    int
	engine endian.EndianEngine
}

// NewBlobReader creates a reader positioned at the start of data.
//
// The reader does not copy data; the caller must not modify it while reading.
func NewBlobReader(data []byte) *BlobReader {
	return &BlobReader{
		data:   data,
		engine: endian.GetLittleEndianEngine(),
	}
}

// Len returns the total length of the blob.
func (r *BlobReader) Len() int {
	return len(r.data)
}

// Offset returns the current cursor position.
func (r *BlobReader) Offset() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *BlobReader) Remaining() int {
	return len(r.data) - r.pos
}

// Rest returns the unread bytes and moves the cursor to the end.
func (r *BlobReader) Rest() []byte {
	rest := r.data[r.pos:]
	r.pos = len(r.data)

	return rest
}

func (r *BlobReader) need(n int) error {
	if n < 0 || r.Remaining() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			errs.ErrMalformedEncoding, n, r.pos, r.Remaining())
	}

	return nil
}

// ReadByte reads one byte.
func (r *BlobReader) ReadByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++

	return b, nil
}

// PeekByte returns the next byte without consuming it.
func (r *BlobReader) PeekByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}

	return r.data[r.pos], nil
}

// ReadBytes reads the next n bytes. The returned slice aliases the blob.
func (r *BlobReader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n

	return b, nil
}

func (r *BlobReader) ReadUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := r.engine.Uint16(r.data[r.pos:])
	r.pos += 2

	return v, nil
}

func (r *BlobReader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := r.engine.Uint32(r.data[r.pos:])
	r.pos += 4

	return v, nil
}

func (r *BlobReader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := r.engine.Uint64(r.data[r.pos:])
	r.pos += 8

	return v, nil
}

func (r *BlobReader) ReadInt8() (int8, error) {
	b, err := r.ReadByte()
	return int8(b), err //nolint:gosec
}

func (r *BlobReader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err //nolint:gosec
}

func (r *BlobReader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err //nolint:gosec
}

func (r *BlobReader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err //nolint:gosec
}

func (r *BlobReader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *BlobReader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadCompressedUInt32 reads a compressed unsigned integer at the cursor.
func (r *BlobReader) ReadCompressedUInt32() (uint32, error) {
	v, n, err := DecodeCompressedUInt32(r.data[r.pos:])
	if err != nil {
		return 0, fmt.Errorf("at offset %d: %w", r.pos, err)
	}
	r.pos += n

	return v, nil
}

// ReadCompressedInt32 reads a compressed signed integer at the cursor.
func (r *BlobReader) ReadCompressedInt32() (int32, error) {
	start := r.pos
	v, err := ReadCompressedInt32(r)
	if err != nil {
		r.pos = start
		return 0, fmt.Errorf("at offset %d: %w", start, err)
	}

	return v, nil
}
