// Package errs defines the sentinel errors returned by clrmeta packages.
//
// Errors are wrapped at the point of detection with fmt.Errorf("%w: ...")
// so callers can match them with errors.Is while still seeing the offset,
// table or tag that caused the failure.
package errs

import "errors"

// Encoding errors.
var (
	// ErrMalformedEncoding is returned when a compressed integer or a fixed-width
	// value is truncated, or its leading byte is not a valid width marker.
	ErrMalformedEncoding = errors.New("malformed encoding")
	// ErrEncodingOverflow is returned when a value cannot be represented by the
	// compressed integer format (unsigned >= 2^29, signed outside [-2^28, 2^28-1]).
	ErrEncodingOverflow = errors.New("value too large for compressed encoding")
)

// Signature errors.
var (
	ErrInvalidSignatureKind    = errors.New("invalid signature kind")
	ErrUnsupportedConstantType = errors.New("unsupported constant type")
	ErrUnsupportedElementType  = errors.New("unsupported element type")
)

// Table errors.
var (
	// ErrUnresolvedReference is returned when a coded index or row lookup cannot
	// find its target row: the table is absent, the index is out of range, or a
	// required cross-reference is nil during reconstruction.
	ErrUnresolvedReference = errors.New("unresolved metadata reference")
	// ErrTableSchemaMismatch is returned when a row's cells do not match the
	// column count or column kinds of its table.
	ErrTableSchemaMismatch = errors.New("table schema mismatch")
	ErrInvalidToken        = errors.New("invalid metadata token")
)

// Structure errors.
var (
	ErrInvalidMetadataSignature = errors.New("invalid metadata root signature")
	ErrInvalidHeaderSize        = errors.New("invalid header size")
	ErrStreamNotFound           = errors.New("metadata stream not found")
	ErrStreamOutOfRange         = errors.New("metadata stream out of range")
)

// Snapshot errors.
var (
	ErrInvalidSnapshot  = errors.New("invalid snapshot")
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
)
