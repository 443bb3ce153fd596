// Package clrmeta reads, edits and rewrites CLI (.NET) metadata directories.
//
// A metadata directory is the "BSJB" root header, its stream headers and the
// streams it describes: the #~ tables stream and the #Strings, #US, #GUID
// and #Blob heaps. clrmeta loads a directory into a mutable model, lets the
// caller add or change table rows, and regenerates every stream with freshly
// computed column widths.
//
// # Basic Usage
//
// Loading a directory and resolving a token:
//
//	md, err := clrmeta.Load(data)
//	if err != nil {
//	    return err
//	}
//	row, err := md.ResolveMember(0x02000002)
//
// Adding rows and writing the result:
//
//	typ, _ := md.AddTypeDef(0x00100001, "Demo", "Point", object)
//	_, _ = md.AddField(typ, 0x0001, "X", &signature.FieldSignature{Type: md.TypeSystem().Int32})
//	if _, err := md.Rebuild(); err != nil {
//	    return err
//	}
//	out, err := md.Bytes()
//
// # Package Structure
//
// This package provides top-level wrappers for the common cases. The
// metadata package holds the model; table, heap, signature and section hold
// the codecs it is built from; snapshot stores directories compressed.
package clrmeta

import (
	"github.com/arloliu/clrmeta/metadata"
	"github.com/arloliu/clrmeta/snapshot"
)

// Load parses a metadata directory into a model.
//
// Parameters:
//   - data: Metadata directory starting at the "BSJB" signature
//   - opts: Model options, e.g. metadata.WithLogger
//
// Returns:
//   - *metadata.Metadata: The loaded model
//   - error: Parse errors from the metadata package
func Load(data []byte, opts ...metadata.Option) (*metadata.Metadata, error) {
	return metadata.Load(data, opts...)
}

// New creates an empty model with the standard streams.
func New(opts ...metadata.Option) (*metadata.Metadata, error) {
	return metadata.New(opts...)
}

// Rebuild loads data, regenerates every stream and returns the new directory.
//
// The result is canonical: rebuilding it again yields identical bytes.
func Rebuild(data []byte, opts ...metadata.Option) ([]byte, error) {
	md, err := metadata.Load(data, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := md.Rebuild(); err != nil {
		return nil, err
	}

	return md.Bytes()
}

// Snapshot rebuilds md and stores the resulting directory as a snapshot.
func Snapshot(md *metadata.Metadata, opts ...snapshot.Option) ([]byte, error) {
	if _, err := md.Rebuild(); err != nil {
		return nil, err
	}
	data, err := md.Bytes()
	if err != nil {
		return nil, err
	}

	return snapshot.Encode(data, opts...)
}

// Restore loads the model stored in a snapshot.
func Restore(snap []byte, opts ...metadata.Option) (*metadata.Metadata, error) {
	data, _, err := snapshot.Decode(snap)
	if err != nil {
		return nil, err
	}

	return metadata.Load(data, opts...)
}
