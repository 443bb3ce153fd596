package section

// metadata root
const (
	MetadataSignature       = 0x424A5342 // "BSJB"
	MetadataMajorVersion    = 1
	MetadataMinorVersion    = 1
	MetadataHeaderFixedSize = 16 // signature, versions, reserved, version length
	MetadataTrailerSize     = 4  // flags, stream count
	MaxVersionLength        = 255
	DefaultVersion          = "v4.0.30319"
)

// stream headers
const (
	StreamHeaderFixedSize = 8  // offset, size
	MaxStreamNameLength   = 32 // including the terminator
	StreamAlignment       = 4
)

// snapshot container
const (
	SnapshotHeaderSize = 32         // fixed header size in bytes
	SnapshotMagic      = 0x534D4443 // "CDMS"
	SnapshotVersion    = 1
)

// AlignSize rounds n up to a multiple of StreamAlignment.
func AlignSize(n uint32) uint32 {
	return (n + StreamAlignment - 1) &^ (StreamAlignment - 1)
}
