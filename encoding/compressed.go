package encoding

import (
	"fmt"
	"io"

	"github.com/arloliu/clrmeta/endian"
	"github.com/arloliu/clrmeta/errs"
)

// Compressed integer limits (ECMA-335 II.23.2).
const (
	MaxCompressedUInt32 = 0x1FFFFFFF
	MinCompressedInt32  = -(1 << 28)
	MaxCompressedInt32  = 1<<28 - 1
)

// width-specific masks of the compressed unsigned encoding
const (
	oneByteMask   = 0x7F
	twoByteMask   = 0x3FFF
	fourByteMask  = 0x1FFFFFFF
	twoByteFlag   = 0x8000
	fourByteFlag  = 0xC0000000
	oneByteBits   = 7
	twoByteBits   = 14
	fourByteBits  = 29
	maxCompressed = 4
)

var compressedEngine = endian.GetCompressedEngine()

// GetCompressedUInt32Size returns the number of bytes the compressed form of v occupies.
//
// Returns 0 if v is larger than MaxCompressedUInt32 and therefore unrepresentable.
func GetCompressedUInt32Size(v uint32) int {
	switch {
	case v <= oneByteMask:
		return 1
	case v <= twoByteMask:
		return 2
	case v <= fourByteMask:
		return 4
	default:
		return 0
	}
}

// GetCompressedInt32Size returns the number of bytes the compressed form of v occupies.
//
// Returns 0 if v is outside [MinCompressedInt32, MaxCompressedInt32].
func GetCompressedInt32Size(v int32) int {
	switch {
	case v >= -(1<<6) && v < 1<<6:
		return 1
	case v >= -(1<<13) && v < 1<<13:
		return 2
	case v >= MinCompressedInt32 && v <= MaxCompressedInt32:
		return 4
	default:
		return 0
	}
}

// AppendCompressedUInt32 appends the minimal compressed form of v to dst.
//
// Parameters:
//   - dst: Destination buffer
//   - v: Value to encode (must not exceed MaxCompressedUInt32)
//
// Returns:
//   - []byte: dst with the encoded bytes appended
//   - error: ErrEncodingOverflow if v is unrepresentable
func AppendCompressedUInt32(dst []byte, v uint32) ([]byte, error) {
	switch GetCompressedUInt32Size(v) {
	case 1:
		return append(dst, byte(v)), nil
	case 2:
		return compressedEngine.AppendUint16(dst, uint16(twoByteFlag|v)), nil //nolint:gosec
	case 4:
		return compressedEngine.AppendUint32(dst, fourByteFlag|v), nil
	default:
		return dst, fmt.Errorf("%w: unsigned value 0x%x", errs.ErrEncodingOverflow, v)
	}
}

// AppendCompressedInt32 appends the minimal compressed form of the signed value v to dst.
//
// The two's complement value is rotated left by one bit within the chosen
// width, so the sign ends up in the lowest bit of the encoded unsigned value.
func AppendCompressedInt32(dst []byte, v int32) ([]byte, error) {
	var mask uint32
	switch GetCompressedInt32Size(v) {
	case 1:
		mask = oneByteMask
	case 2:
		mask = twoByteMask
	case 4:
		mask = fourByteMask
	default:
		return dst, fmt.Errorf("%w: signed value %d", errs.ErrEncodingOverflow, v)
	}

	u := uint32(v) << 1 //nolint:gosec
	if v < 0 {
		u |= 1
	}

	return AppendCompressedUInt32(dst, u&mask)
}

// WriteCompressedUInt32 writes the minimal compressed form of v to w.
func WriteCompressedUInt32(w io.Writer, v uint32) error {
	var tmp [maxCompressed]byte
	buf, err := AppendCompressedUInt32(tmp[:0], v)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)

	return err
}

// WriteCompressedInt32 writes the minimal compressed form of the signed value v to w.
func WriteCompressedInt32(w io.Writer, v int32) error {
	var tmp [maxCompressed]byte
	buf, err := AppendCompressedInt32(tmp[:0], v)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)

	return err
}

// ReadCompressedUInt32 reads one compressed unsigned integer from source.
//
// The width is selected by the top bits of the first byte: 0xxxxxxx is one
// byte, 10xxxxxx two bytes and 110xxxxx four bytes, all most significant byte first.
//
// Returns:
//   - uint32: Decoded value
//   - error: ErrMalformedEncoding if source is exhausted mid-sequence or the
//     first byte carries an invalid width marker
func ReadCompressedUInt32(source io.ByteReader) (uint32, error) {
	v, _, err := readCompressed(source)
	return v, err
}

// ReadCompressedInt32 reads one compressed signed integer from source.
func ReadCompressedInt32(source io.ByteReader) (int32, error) {
	u, bits, err := readCompressed(source)
	if err != nil {
		return 0, err
	}

	return unrotateSigned(u, bits), nil
}

// DecodeCompressedUInt32 decodes a compressed unsigned integer from the start of b.
//
// Returns the value and the number of bytes consumed.
func DecodeCompressedUInt32(b []byte) (uint32, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("%w: empty input", errs.ErrMalformedEncoding)
	}

	b0 := b[0]
	switch {
	case b0&0x80 == 0:
		return uint32(b0), 1, nil
	case b0&0xC0 == 0x80:
		if len(b) < 2 {
			return 0, 0, fmt.Errorf("%w: truncated 2-byte integer", errs.ErrMalformedEncoding)
		}
		return uint32(compressedEngine.Uint16(b)) & twoByteMask, 2, nil
	case b0&0xE0 == 0xC0:
		if len(b) < 4 {
			return 0, 0, fmt.Errorf("%w: truncated 4-byte integer", errs.ErrMalformedEncoding)
		}
		return compressedEngine.Uint32(b) & fourByteMask, 4, nil
	default:
		return 0, 0, fmt.Errorf("%w: invalid width marker 0x%02x", errs.ErrMalformedEncoding, b0)
	}
}

func readCompressed(source io.ByteReader) (uint32, int, error) {
	b0, err := source.ReadByte()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", errs.ErrMalformedEncoding, err)
	}

	var buf [maxCompressed]byte
	buf[0] = b0

	n := 1
	switch {
	case b0&0x80 == 0:
		return uint32(b0), oneByteBits, nil
	case b0&0xC0 == 0x80:
		n = 2
	case b0&0xE0 == 0xC0:
		n = 4
	default:
		return 0, 0, fmt.Errorf("%w: invalid width marker 0x%02x", errs.ErrMalformedEncoding, b0)
	}

	for i := 1; i < n; i++ {
		if buf[i], err = source.ReadByte(); err != nil {
			return 0, 0, fmt.Errorf("%w: truncated %d-byte integer: %w", errs.ErrMalformedEncoding, n, err)
		}
	}

	v, _, err := DecodeCompressedUInt32(buf[:n])
	if n == 2 {
		return v, twoByteBits, err
	}

	return v, fourByteBits, err
}

// unrotateSigned undoes the one-bit rotation of a signed value encoded in bits bits.
func unrotateSigned(u uint32, bits int) int32 {
	magnitude := int32(u >> 1) //nolint:gosec
	if u&1 == 0 {
		return magnitude
	}

	return magnitude - int32(1)<<(bits-1)
}
