package format

type CompressionType uint8

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// ParseCompressionType maps a name as printed by String, or its lower-case form, back to its value.
func ParseCompressionType(name string) (CompressionType, bool) {
	switch name {
	case "None", "none", "":
		return CompressionNone, true
	case "Zstd", "zstd":
		return CompressionZstd, true
	case "S2", "s2":
		return CompressionS2, true
	case "LZ4", "lz4":
		return CompressionLZ4, true
	default:
		return 0, false
	}
}

// HeapKind identifies one of the offset-addressed metadata heaps.
type HeapKind uint8

const (
	HeapStrings HeapKind = iota
	HeapGUID
	HeapBlob
	HeapUserStrings
)

// Heap offset size flags stored in the HeapOffsetSizes byte of the #~ header.
const (
	HeapOffsetStringsLarge uint8 = 0x01
	HeapOffsetGUIDLarge    uint8 = 0x02
	HeapOffsetBlobLarge    uint8 = 0x04
	HeapOffsetExtraData    uint8 = 0x40
)

// Stream names as they appear in stream headers.
const (
	StreamStrings           = "#Strings"
	StreamUserStrings       = "#US"
	StreamGUID              = "#GUID"
	StreamBlob              = "#Blob"
	StreamTables            = "#~"
	StreamUncompressedTable = "#-"
)

func (h HeapKind) String() string {
	switch h {
	case HeapStrings:
		return "Strings"
	case HeapGUID:
		return "GUID"
	case HeapBlob:
		return "Blob"
	case HeapUserStrings:
		return "UserStrings"
	default:
		return "Unknown"
	}
}

// LargeFlag returns the HeapOffsetSizes bit set when the heap uses 4-byte offsets.
// The user-string heap is never indexed from tables and has no flag.
func (h HeapKind) LargeFlag() uint8 {
	switch h {
	case HeapStrings:
		return HeapOffsetStringsLarge
	case HeapGUID:
		return HeapOffsetGUIDLarge
	case HeapBlob:
		return HeapOffsetBlobLarge
	default:
		return 0
	}
}
