// Package endian provides the byte order engines used by the metadata codecs.
//
// CLI metadata mixes two byte orders: every fixed-width field in headers,
// table rows and constant blobs is little-endian, while the multi-byte forms
// of compressed integers are stored most significant byte first. Codecs take
// an EndianEngine instead of hard-coding binary.LittleEndian so that both
// orders go through the same read/append API:
//
//	engine := endian.GetLittleEndianEngine()
//	buf = engine.AppendUint32(buf, rowCount)
//
//	compressed := endian.GetCompressedEngine()
//	buf = compressed.AppendUint16(buf, 0x8000|uint16(v))
//
// All functions in this package are safe for concurrent use; the returned
// engines are immutable and stateless.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary
// into a single interface for convenient byte order operations.
//
// This interface is satisfied by binary.LittleEndian and binary.BigEndian.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// CheckEndianness uses a fixed integer value to determine the host's byte order.
func CheckEndianness() binary.ByteOrder {
	// 0x0100 is 256. For a little-endian system, the LSB (0x00) is first.
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))

	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNativeLittleEndian reports whether the host stores integers the way metadata does,
// which allows fixed-width columns to be copied without swapping.
func IsNativeLittleEndian() bool {
	return CheckEndianness() == binary.LittleEndian
}

// GetLittleEndianEngine returns the engine for fixed-width metadata fields.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetCompressedEngine returns the engine for the 2- and 4-byte forms of
// compressed integers, which are stored big-endian.
func GetCompressedEngine() EndianEngine {
	return binary.BigEndian
}
