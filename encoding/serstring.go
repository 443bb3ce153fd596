package encoding

import (
	"fmt"
	"unicode/utf8"

	"github.com/arloliu/clrmeta/errs"
)

// NullSerString is the single-byte marker of a null SerString.
const NullSerString = 0xFF

// ReadSerString reads a SerString as used by custom attribute blobs.
//
// Encoding format:
//   - 1 byte 0xFF: null string, decoded as ""
//   - otherwise: compressed length followed by that many UTF-8 bytes
//
// Parameters:
//   - r: Reader positioned at the SerString
//
// Returns:
//   - string: Decoded string ("" for null)
//   - bool: true if the string was the null marker
//   - error: ErrMalformedEncoding on truncation or invalid UTF-8
func ReadSerString(r *BlobReader) (string, bool, error) {
	b, err := r.PeekByte()
	if err != nil {
		return "", false, err
	}
	if b == NullSerString {
		_, _ = r.ReadByte()
		return "", true, nil
	}

	n, err := r.ReadCompressedUInt32()
	if err != nil {
		return "", false, err
	}

	raw, err := r.ReadBytes(int(n))
	if err != nil {
		return "", false, err
	}
	if !utf8.Valid(raw) {
		return "", false, fmt.Errorf("%w: SerString is not valid UTF-8", errs.ErrMalformedEncoding)
	}

	return string(raw), false, nil
}

// AppendSerString appends s as a SerString to dst. A null string is written as
// the single byte 0xFF.
func AppendSerString(dst []byte, s string, null bool) ([]byte, error) {
	if null {
		return append(dst, NullSerString), nil
	}

	dst, err := AppendCompressedUInt32(dst, uint32(len(s))) //nolint:gosec
	if err != nil {
		return dst, err
	}

	return append(dst, s...), nil
}
