package encoding

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"

	"github.com/arloliu/clrmeta/errs"
)

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DecodeUTF16 decodes little-endian UTF-16 bytes into a Go string.
//
// An odd trailing byte is ignored.
func DecodeUTF16(b []byte) (string, error) {
	b = b[:len(b)&^1]
	if len(b) == 0 {
		return "", nil
	}

	out, err := utf16LE.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrMalformedEncoding, err)
	}

	return string(out), nil
}

// EncodeUTF16 encodes s as little-endian UTF-16 without a byte order mark.
func EncodeUTF16(s string) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}

	out, err := utf16LE.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrEncodingOverflow, err)
	}

	return out, nil
}
