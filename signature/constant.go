package signature

import (
	"errors"
	"fmt"

	"github.com/arloliu/clrmeta/encoding"
	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
)

// ReadConstantValue decodes the value of a Constant row.
//
// The tag selects a fixed decoding: Boolean is one byte equal to 1, Char is a
// UTF-16 code unit, String is the entire blob as UTF-16LE, and the integer and
// floating point tags are little-endian values of their natural width.
//
// Returns:
//   - any: bool, Char, string, int8 ... uint64, float32 or float64
//   - error: ErrUnsupportedConstantType for any other tag
func (d *Decoder) ReadConstantValue(tag format.ElementType, offset uint32) (any, error) {
	if !isConstantType(tag) {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedConstantType, tag)
	}

	r, err := d.reader(offset)
	if err != nil {
		return nil, err
	}

	if tag == format.ElementString {
		return encoding.DecodeUTF16(r.Rest())
	}

	v, err := readScalar(r, tag)
	if errors.Is(err, errs.ErrUnsupportedElementType) {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedConstantType, tag)
	}

	return v, err
}

func isConstantType(tag format.ElementType) bool {
	switch tag {
	case format.ElementBoolean, format.ElementChar, format.ElementString,
		format.ElementI1, format.ElementU1, format.ElementI2, format.ElementU2,
		format.ElementI4, format.ElementU4, format.ElementI8, format.ElementU8,
		format.ElementR4, format.ElementR8:
		return true
	default:
		return false
	}
}
