// Package section defines the fixed binary structures that frame a CLI
// metadata directory and the snapshot container built around it.
//
// # Metadata Root
//
// The metadata directory starts with a root header (ECMA-335 II.24.2.1)
// followed by one header per stream:
//
//	0x00 Signature      uint32  0x424A5342 ("BSJB")
//	0x04 MajorVersion   uint16
//	0x06 MinorVersion   uint16
//	0x08 Reserved       uint32
//	0x0C Length         uint32  version string length, padded to 4
//	0x10 Version        [Length]byte, NUL padded
//	     Flags          uint16
//	     Streams        uint16
//
// Each stream header holds the stream offset (relative to the root), its
// size and its NUL terminated name padded to a multiple of 4 bytes. With the
// usual "v4.0.30319" version string the prolog is 0x20 bytes.
//
// # Layout
//
// CalculateLayout assigns sequential offsets to streams: the first stream
// starts right after the last stream header and every stream is padded to a
// 4-byte boundary.
//
// # Snapshot Header
//
// SnapshotHeader is the fixed 32-byte header of the snapshot container:
//
//	0x00 Magic        uint32
//	0x04 Version      uint16
//	0x06 Compression  uint8
//	0x07 Reserved     uint8
//	0x08 RawSize      uint32
//	0x0C PayloadSize  uint32
//	0x10 Checksum     uint64  xxHash64 of the raw metadata
//	0x18 CreatedAt    int64   unix microseconds
//
// All multi-byte values are little-endian.
package section
