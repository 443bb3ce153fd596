// Package encoding provides the primitive codecs of CLI metadata blobs.
//
// The package covers three concerns:
//   - Compressed integers (ECMA-335 II.23.2): 1, 2 or 4 byte big-endian
//     encodings selected by the top bits of the first byte, in unsigned and
//     signed (low-bit sign) flavours.
//   - BlobReader: a bounds-checked little-endian cursor over a single blob,
//     used by the signature decoder.
//   - String forms: SerString (custom attribute strings) and UTF-16LE
//     (user strings and string constants).
//
// Every short read reports errs.ErrMalformedEncoding and every value that
// cannot be represented reports errs.ErrEncodingOverflow.
//
// # Example
//
//	buf, _ := encoding.AppendCompressedUInt32(nil, 0x4000) // C0 00 40 00
//	r := encoding.NewBlobReader(buf)
//	v, _ := r.ReadCompressedUInt32() // 0x4000
package encoding
