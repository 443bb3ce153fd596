package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// S2Compressor is the fast snapshot codec. Blocks are written with
// EncodeBetter, which suits the repetitive identifier text of the #Strings
// heap at a small speed cost.
type S2Compressor struct{}

var (
	_ Codec             = (*S2Compressor)(nil)
	_ SizedDecompressor = (*S2Compressor)(nil)
)

// NewS2Compressor creates an S2 codec.
func NewS2Compressor() S2Compressor {
	return S2Compressor{}
}

// Compress encodes data as one S2 block.
func (c S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.EncodeBetter(nil, data), nil
}

// Decompress decodes an S2 block. The block header records the decoded
// length, so the output is allocated once.
func (c S2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}

// DecompressSized decodes a snapshot payload whose raw size the snapshot
// header records. A block whose own length header disagrees is rejected
// before anything is allocated.
func (c S2Compressor) DecompressSized(data []byte, size int) ([]byte, error) {
	if size == 0 && len(data) == 0 {
		return nil, nil
	}

	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, err
	}
	if n != size {
		return nil, fmt.Errorf("s2 block holds %d bytes, expected %d", n, size)
	}

	return s2.Decode(make([]byte, size), data)
}
