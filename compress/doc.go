// Package compress provides the codecs used to store metadata snapshots.
//
// A snapshot is a serialized metadata directory wrapped in a small header.
// The directory itself is dominated by the #Strings and #Blob heaps and by
// fixed-width table rows, all of which compress well with general purpose
// algorithms. The package supports:
//   - None: the directory is stored as is
//   - Zstd: best ratio, used for archived snapshots
//   - S2: balanced speed and ratio
//   - LZ4: fastest decompression
//
// Every codec implements Codec:
//
//	codec, err := compress.GetCodec(format.CompressionZstd)
//	if err != nil {
//	    return err
//	}
//	packed, err := codec.Compress(directory)
//
// # Zstd backends
//
// Zstd uses the pure Go github.com/klauspost/compress/zstd implementation by
// default. Building with cgo enabled and the gozstd tag switches to the
// github.com/valyala/gozstd binding:
//
//	go build -tags gozstd ./...
//
// Both backends produce standard zstd frames, so snapshots written by one can
// be read by the other.
//
// # Thread safety
//
// All codecs are stateless values and safe for concurrent use. Encoders and
// decoders are pooled internally.
package compress
